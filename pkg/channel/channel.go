package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/internal/metrics"
	"github.com/bft-labs/recship/pkg/clock"
	"github.com/bft-labs/recship/pkg/log"
)

// State is the connection state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Controller receives the consumer's commands.
type Controller interface {
	StartRecording()
	StopRecording()

	// SyncRecording stores the recording flag the consumer reports on connect.
	SyncRecording(recording bool)

	// Status reports the page URL and whether it is recording.
	Status() (url string, recording bool)
}

// Fallback stores sessions that could not be delivered.
type Fallback interface {
	SaveSession(ctx context.Context, s domain.Session) error
}

// Channel is a reconnecting WebSocket client. Create it with New.
type Channel struct {
	cfg      Config
	dialer   Dialer
	clock    clock.Clock
	logger   log.Logger
	fallback Fallback
	onGiveUp func()

	mu      sync.Mutex
	ctrl    Controller
	state   State
	backoff *backoff
	conn    Conn
	timer   clock.Timer
	closed  bool
	gaveUp  bool

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// Option configures a Channel.
type Option func(*Channel)

// WithDialer replaces the gorilla/websocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Channel) { c.dialer = d }
}

// WithClock sets the clock used for reconnect timers.
func WithClock(clk clock.Clock) Option {
	return func(c *Channel) { c.clock = clk }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(c *Channel) { c.logger = l }
}

// WithFallback sets where undeliverable sessions go.
func WithFallback(f Fallback) Option {
	return func(c *Channel) { c.fallback = f }
}

// WithGiveUp sets a hook called once when the retry cap is exhausted.
func WithGiveUp(fn func()) Option {
	return func(c *Channel) { c.onGiveUp = fn }
}

// WithController sets the command receiver.
func WithController(ctrl Controller) Option {
	return func(c *Channel) { c.ctrl = ctrl }
}

// New creates a disconnected Channel. Call Connect to start it.
func New(cfg Config, opts ...Option) *Channel {
	cfg = cfg.withDefaults()
	c := &Channel{
		cfg:     cfg,
		dialer:  WebsocketDialer{Dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}},
		clock:   clock.Real(),
		logger:  log.NewNoopLogger(),
		backoff: newBackoff(cfg.BaseDelay, cfg.MaxRetries),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetController sets the command receiver. It must be called before Connect
// when the controller is built after the channel.
func (c *Channel) SetController(ctrl Controller) {
	c.mu.Lock()
	c.ctrl = ctrl
	c.mu.Unlock()
}

// Connect dials the consumer. The dial runs on the calling goroutine; a
// failure schedules a reconnect rather than returning an error.
func (c *Channel) Connect() {
	c.connect()
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the channel is connected.
func (c *Channel) Connected() bool {
	return c.State() == Connected
}

// Retries returns the reconnect attempts since the last successful connect.
func (c *Channel) Retries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backoff.Attempt()
}

// GaveUp reports whether the channel stopped reconnecting for good.
func (c *Channel) GaveUp() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gaveUp
}

func (c *Channel) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.logger.Debug("channel state changed",
		log.String("from", c.state.String()),
		log.String("to", s.String()),
	)
	c.state = s
	metrics.SetChannelState(int(s))
}

func (c *Channel) connect() {
	c.mu.Lock()
	c.timer = nil
	if c.closed || c.gaveUp || c.state != Disconnected {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(Connecting)
	c.mu.Unlock()

	c.logger.Debug("dialing consumer", log.String("url", c.cfg.URL))
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
	conn, err := c.dialer.Dial(ctx, c.cfg.URL)
	cancel()
	if err != nil {
		c.logger.Warn("connect to consumer failed", log.String("url", c.cfg.URL), log.Err(err))
		c.disconnected(nil)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.setStateLocked(Disconnected)
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.backoff.Reset()
	c.setStateLocked(Connected)
	ctrl := c.ctrl
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Info("connected to consumer", log.String("url", c.cfg.URL))
	go c.readLoop(conn)

	if ctrl != nil {
		url, recording := ctrl.Status()
		_ = c.Send(context.Background(), Status(url, recording))
	}
}

// disconnected moves back to Disconnected and schedules the next attempt.
// conn is the connection that ended, or nil after a failed dial.
func (c *Channel) disconnected(conn Conn) {
	c.mu.Lock()
	if conn != nil && c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.setStateLocked(Disconnected)
	if c.closed || c.gaveUp {
		c.mu.Unlock()
		return
	}

	delay, ok := c.backoff.Next()
	if !ok {
		c.gaveUp = true
		giveUp := c.onGiveUp
		c.mu.Unlock()

		c.logger.Warn("consumer unreachable, giving up",
			log.Int("max_retries", c.cfg.MaxRetries),
			log.Err(domain.ErrRetriesExhausted),
		)
		if giveUp != nil {
			giveUp()
		}
		return
	}
	attempt := c.backoff.Attempt()
	c.timer = c.clock.AfterFunc(delay, c.connect)
	c.mu.Unlock()

	metrics.ChannelReconnects.Inc()
	c.logger.Info("reconnect scheduled",
		log.Int("attempt", attempt),
		log.Int("max_retries", c.cfg.MaxRetries),
		log.Duration("delay", delay),
	)
}

func (c *Channel) readLoop(conn Conn) {
	defer c.wg.Done()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.logger.Info("consumer connection closed", log.Err(err))
			}
			_ = conn.Close()
			c.disconnected(conn)
			return
		}
		c.dispatch(data)
	}
}

func (c *Channel) dispatch(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("discard malformed message", log.Int("bytes", len(data)), log.Err(err))
		metrics.ObserveMessage("in", "malformed")
		return
	}
	metrics.ObserveMessage("in", inboundLabel(msg.Type))

	c.mu.Lock()
	ctrl := c.ctrl
	c.mu.Unlock()

	switch msg.Type {
	case TypePing:
		_ = c.Send(context.Background(), Pong(c.clock.Now().UnixMilli()))
	case TypePong:
	case TypeStartRecording:
		if ctrl != nil {
			ctrl.StartRecording()
		}
	case TypeStopRecording:
		if ctrl != nil {
			ctrl.StopRecording()
		}
	case TypeConnected:
		// A missing recording field clears the flag.
		if ctrl != nil {
			ctrl.SyncRecording(msg.Recording != nil && *msg.Recording)
		}
	case TypeError:
		c.logger.Error("consumer reported error",
			log.String("message", msg.text()),
			log.String("details", string(msg.Details)),
		)
	case TypeWarning:
		c.logger.Warn("consumer warning", log.String("message", msg.text()))
	case TypeInfo:
		c.logger.Info("consumer info", log.String("message", msg.text()))
	default:
		c.logger.Warn("ignore unknown message type", log.String("type", msg.Type))
	}
}

func inboundLabel(t string) string {
	switch t {
	case TypePing, TypePong, TypeStartRecording, TypeStopRecording,
		TypeConnected, TypeError, TypeWarning, TypeInfo:
		return t
	}
	return "unknown"
}

// Send writes msg if connected. When the channel is not connected, or the
// write fails, test_generated messages go to the fallback and all other
// messages are dropped. The returned error reports the failed delivery.
func (c *Channel) Send(ctx context.Context, msg Message) error {
	err := c.write(msg)
	if err == nil {
		metrics.ObserveMessage("out", msg.Type)
		return nil
	}

	if msg.Type == TypeTestGenerated && msg.TestData != nil && c.fallback != nil {
		c.logger.Info("consumer unavailable, session kept locally",
			log.String("session_id", msg.TestData.ID),
			log.Err(err),
		)
		metrics.ObserveMessage("fallback", msg.Type)
		if ferr := c.fallback.SaveSession(ctx, *msg.TestData); ferr != nil {
			return fmt.Errorf("%w; fallback: %v", err, ferr)
		}
		return err
	}

	c.logger.Debug("drop message", log.String("type", msg.Type), log.Err(err))
	metrics.ObserveMessage("dropped", msg.Type)
	return err
}

func (c *Channel) write(msg Message) error {
	c.mu.Lock()
	conn, state, closed := c.conn, c.state, c.closed
	c.mu.Unlock()
	if closed {
		return domain.ErrChannelClosed
	}
	if state != Connected || conn == nil {
		return domain.ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		// Closing unblocks the read loop, which drives the reconnect.
		_ = conn.Close()
		return fmt.Errorf("write %s: %w", msg.Type, err)
	}
	return nil
}

// Close stops the channel for good: it cancels any pending reconnect,
// closes the connection and waits for the read loop to exit. It must not
// be called from a Controller method.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "page unloaded"))
		c.writeMu.Unlock()
		_ = conn.Close()
	}
	c.wg.Wait()
	return nil
}
