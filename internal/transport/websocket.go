package transport

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/vovakirdan/fpsnet/internal/protocol"
)

// WSOptions tunes the WebSocket transport.
type WSOptions struct {
	OutboxSize   int           // Per-connection send queue bound
	InboundRate  rate.Limit    // Unreliable messages per second accepted from one peer
	InboundBurst int           // Burst allowance for InboundRate
	PingInterval time.Duration // Keepalive ping period
	PongWait     time.Duration // Read deadline extended by every pong
	WriteWait    time.Duration // Deadline for a single write
	ReadLimit    int64         // Maximum message size in bytes
	Logger       *log.Logger
}

// DefaultWSOptions returns options suited to a 60 Hz simulation.
func DefaultWSOptions() WSOptions {
	return WSOptions{
		OutboxSize:   DefaultOutboxSize,
		InboundRate:  240,
		InboundBurst: 60,
		PingInterval: 5 * time.Second,
		PongWait:     15 * time.Second,
		WriteWait:    5 * time.Second,
		ReadLimit:    1 << 20,
	}
}

func (o WSOptions) withDefaults() WSOptions {
	d := DefaultWSOptions()
	if o.OutboxSize <= 0 {
		o.OutboxSize = d.OutboxSize
	}
	if o.InboundRate <= 0 {
		o.InboundRate = d.InboundRate
	}
	if o.InboundBurst <= 0 {
		o.InboundBurst = d.InboundBurst
	}
	if o.PingInterval <= 0 {
		o.PingInterval = d.PingInterval
	}
	if o.PongWait <= o.PingInterval {
		o.PongWait = 3 * o.PingInterval
	}
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = d.ReadLimit
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// wsConn wraps one socket with a bounded outbox and its read/write pumps.
type wsConn struct {
	id      protocol.ConnID
	ws      *websocket.Conn
	opts    WSOptions
	limiter *rate.Limiter
	inbox   *inbox

	writeMu sync.Mutex // serializes data frames and keeps outbox order

	mu       sync.Mutex
	outbox   []protocol.Message
	wake     chan struct{}
	done     chan struct{}
	closing  bool
	closed   bool
	reason   string
	onClosed func(*wsConn)
}

func newWSConn(id protocol.ConnID, ws *websocket.Conn, opts WSOptions, in *inbox, onClosed func(*wsConn)) *wsConn {
	return &wsConn{
		id:       id,
		ws:       ws,
		opts:     opts,
		limiter:  rate.NewLimiter(opts.InboundRate, opts.InboundBurst),
		inbox:    in,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		onClosed: onClosed,
	}
}

func (c *wsConn) start() {
	go c.writePump()
	go c.readPump()
}

// enqueue never blocks. A full outbox sheds its oldest unreliable message.
// When only reliable messages are queued, a new unreliable one is discarded and
// a new reliable one closes the connection.
func (c *wsConn) enqueue(msg protocol.Message) {
	c.mu.Lock()
	if c.closed || c.closing {
		c.mu.Unlock()
		return
	}
	if len(c.outbox) >= c.opts.OutboxSize {
		i := slices.IndexFunc(c.outbox, func(m protocol.Message) bool { return m.Class() == protocol.Unreliable })
		switch {
		case i >= 0:
			c.outbox = slices.Delete(c.outbox, i, i+1)
		case msg.Class() == protocol.Reliable:
			c.mu.Unlock()
			c.close(protocol.ReasonTransportClosed, true)
			return
		default:
			c.mu.Unlock()
			return
		}
	}
	c.outbox = append(c.outbox, msg)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *wsConn) takeOutbox() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.outbox
	c.outbox = nil
	return out
}

// close tears the socket down once. notify reports the loss to the local
// tick loop as KindDisconnected.
func (c *wsConn) close(reason string, notify bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.reason = reason
	c.mu.Unlock()

	close(c.done)
	_ = c.ws.Close()
	if notify {
		c.inbox.push(Envelope{Conn: c.id, Kind: KindDisconnected, Reason: reason})
	}
	if c.onClosed != nil {
		c.onClosed(c)
	}
}

// closeGracefully flushes the outbox, sends a close frame carrying reason,
// then closes.
func (c *wsConn) closeGracefully(reason string) {
	c.writeMu.Lock()
	_ = c.writeAll(c.takeOutbox())
	c.writeMu.Unlock()

	deadline := time.Now().Add(c.opts.WriteWait)
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason), deadline)
	c.close(reason, false)
}

// shutdown starts a graceful close without blocking the caller. Later sends
// are ignored.
func (c *wsConn) shutdown(reason string) {
	c.mu.Lock()
	if c.closed || c.closing {
		c.mu.Unlock()
		return
	}
	c.closing = true
	c.mu.Unlock()
	go c.closeGracefully(reason)
}

// writeAll must be called with writeMu held.
func (c *wsConn) writeAll(msgs []protocol.Message) error {
	for _, msg := range msgs {
		data, err := protocol.Encode(msg)
		if err != nil {
			c.opts.Logger.Warn("dropping unencodable message", "conn", c.id, "type", msg.Type(), "error", err)
			continue
		}
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
	}
	return nil
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.opts.WriteWait)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.close(protocol.ReasonTransportClosed, true)
				return
			}
		case <-c.wake:
			c.writeMu.Lock()
			err := c.writeAll(c.takeOutbox())
			c.writeMu.Unlock()
			if err != nil {
				c.close(protocol.ReasonTransportClosed, true)
				return
			}
		}
	}
}

func (c *wsConn) readPump() {
	c.ws.SetReadLimit(c.opts.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			reason := protocol.ReasonTransportClosed
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Text != "" {
				reason = ce.Text
			}
			c.close(reason, true)
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))

		msg, err := protocol.Decode(payload)
		if err != nil {
			c.opts.Logger.Debug("discarding undecodable message", "conn", c.id, "error", err)
			continue
		}
		if msg.Class() == protocol.Unreliable && !c.limiter.Allow() {
			continue
		}
		c.inbox.push(Envelope{Conn: c.id, Kind: KindMessage, Message: msg})
	}
}

// WSServer accepts clients on /ws and implements Transport.
type WSServer struct {
	opts   WSOptions
	ln     net.Listener
	srv    *http.Server
	inbox  inbox
	logger *log.Logger

	mu     sync.Mutex
	conns  map[protocol.ConnID]*wsConn
	nextID protocol.ConnID
	closed bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ListenWS binds addr immediately, so a bad address fails here and not in a
// background goroutine, and starts serving.
func ListenWS(addr string, opts WSOptions) (*WSServer, error) {
	opts = opts.withDefaults()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}

	s := &WSServer{
		opts:   opts,
		ln:     ln,
		logger: opts.Logger,
		conns:  make(map[protocol.ConnID]*wsConn),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("websocket server error", "error", err)
		}
	}()
	s.logger.Info("listening", "address", s.Addr())
	return s, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *WSServer) Addr() string {
	return s.ln.Addr().String()
}

// URL returns the ws:// URL clients should dial.
func (s *WSServer) URL() string {
	return "ws://" + s.Addr() + "/ws"
}

func (s *WSServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := len(s.conns)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "ok %d\n", n)
}

func (s *WSServer) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ws.Close()
		return
	}
	s.nextID++
	c := newWSConn(s.nextID, ws, s.opts, &s.inbox, s.forget)
	s.conns[c.id] = c
	s.mu.Unlock()

	s.logger.Info("connection opened", "conn", c.id, "remote", r.RemoteAddr)
	s.inbox.push(Envelope{Conn: c.id, Kind: KindConnected})
	c.start()
}

func (s *WSServer) forget(c *wsConn) {
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
	s.logger.Info("connection closed", "conn", c.id, "reason", c.reason)
}

func (s *WSServer) conn(id protocol.ConnID) *wsConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[id]
}

// Send implements Transport.
func (s *WSServer) Send(conn protocol.ConnID, msg protocol.Message) {
	if c := s.conn(conn); c != nil {
		c.enqueue(msg)
	}
}

// Poll implements Transport.
func (s *WSServer) Poll() iter.Seq[Envelope] {
	return s.inbox.drain()
}

// Drop implements Transport.
func (s *WSServer) Drop(conn protocol.ConnID, reason string) {
	if c := s.conn(conn); c != nil {
		c.shutdown(reason)
	}
}

// Close implements Transport.
func (s *WSServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]*wsConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.closeGracefully(protocol.ReasonServerShutdown)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// WSClient is a client connection to a WSServer. It implements Transport.
type WSClient struct {
	c     *wsConn
	inbox inbox
}

// DialWS connects to a server URL such as ws://host:port/ws.
func DialWS(ctx context.Context, url string, opts WSOptions) (*WSClient, error) {
	opts = opts.withDefaults()
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}
	cl := &WSClient{}
	cl.c = newWSConn(ServerConn, ws, opts, &cl.inbox, nil)
	cl.inbox.push(Envelope{Conn: ServerConn, Kind: KindConnected})
	cl.c.start()
	return cl, nil
}

// Send implements Transport. conn is ignored.
func (cl *WSClient) Send(_ protocol.ConnID, msg protocol.Message) {
	cl.c.enqueue(msg)
}

// Poll implements Transport.
func (cl *WSClient) Poll() iter.Seq[Envelope] {
	return cl.inbox.drain()
}

// Drop implements Transport by closing the connection.
func (cl *WSClient) Drop(_ protocol.ConnID, reason string) {
	cl.c.shutdown(reason)
}

// Close implements Transport.
func (cl *WSClient) Close() error {
	cl.c.closeGracefully(protocol.ReasonQuit)
	return nil
}
