package predict

import "github.com/vovakirdan/fpsnet/internal/protocol"

// Event is something the client learned about other players, raised for
// collaborators such as a UI or the history store.
type Event interface {
	clientEvent()
}

// RemoteJoined is raised when another player's entity becomes known.
type RemoteJoined struct {
	Tick   uint64 // estimated server tick
	Entity protocol.EntityID
	Name   string
	Color  string
}

func (RemoteJoined) clientEvent() {}

// RemoteLeft is raised when another player's entity is gone.
type RemoteLeft struct {
	Tick   uint64
	Entity protocol.EntityID
	Reason string
}

func (RemoteLeft) clientEvent() {}

// Events returns and clears the events raised since the previous call.
func (c *Client) Events() []Event {
	out := c.events
	c.events = nil
	return out
}

func (c *Client) emit(e Event) {
	c.events = append(c.events, e)
}

// addRemote registers another player's entity, or updates its identity when
// it is already known.
func (c *Client) addRemote(id protocol.EntityID, name, color string) *remote {
	if r, ok := c.remotes.Get(id); ok {
		if name != "" {
			r.setIdentity(name, color)
		}
		return r
	}
	r := &remote{id: id, name: name, color: color}
	c.remotes.Set(id, r)
	c.emit(RemoteJoined{Tick: c.ServerTick(), Entity: id, Name: name, Color: color})
	return r
}

func (c *Client) removeRemote(id protocol.EntityID, reason string) {
	if c.remotes.Delete(id) {
		c.emit(RemoteLeft{Tick: c.ServerTick(), Entity: id, Reason: reason})
	}
}
