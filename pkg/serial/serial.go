package serial

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// State is the transport session lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

const readBufferSize = 1024

// PortInfo describes an enumerated serial port. IDs are synthetic and
// sequential from 1, stable only within one enumeration.
type PortInfo struct {
	ID    int
	Name  string
	Label string
}

// Transport is a line-oriented serial console connection. One port is held
// at a time; received chunks are delivered as data events from a background
// read loop. Session state is safe for concurrent access.
type Transport struct {
	platform Platform

	mu       sync.Mutex
	state    State
	port     Port
	portName string
	cancel   context.CancelFunc
	done     chan struct{}
	handlers map[EventType][]Handler
}

// Option configures a Transport.
type Option func(*Transport)

// WithPlatform substitutes the port enumeration and open capability.
func WithPlatform(p Platform) Option {
	return func(t *Transport) {
		if p != nil {
			t.platform = p
		}
	}
}

// NewTransport creates a serial transport backed by the host's ports.
func NewTransport(opts ...Option) *Transport {
	t := &Transport{
		platform: systemPlatform{},
		state:    StateDisconnected,
		handlers: make(map[EventType][]Handler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current session state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connected reports whether a port session is open.
func (t *Transport) Connected() bool {
	return t.State() == StateConnected
}

// PortName returns the open port's system name, or "" when disconnected.
func (t *Transport) PortName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.portName
}

// AvailablePorts enumerates candidate ports. USB-backed ports are labeled
// with their vendor and product ids, the rest by ordinal.
func (t *Transport) AvailablePorts() ([]PortInfo, error) {
	details, err := t.platform.ListPorts()
	if err != nil {
		return nil, errors.Wrap(err, "serial: list ports failed")
	}
	infos := make([]PortInfo, 0, len(details))
	for i, d := range details {
		label := fmt.Sprintf("Serial Port %d", i+1)
		if d.IsUSB && d.VID != "" {
			label = fmt.Sprintf("USB Serial (%s:%s)", strings.ToUpper(d.VID), strings.ToUpper(d.PID))
		}
		infos = append(infos, PortInfo{ID: i + 1, Name: d.Name, Label: label})
	}
	return infos, nil
}

// Connect opens portName at the fixed 115200 8N1 discipline and starts the
// read loop. An empty portName falls back to the first enumerated port, the
// headless analog of a picker dialog; with nothing to pick the attempt
// fails with ErrNoDeviceSelected. Failures leave the transport Disconnected
// with no handle held.
func (t *Transport) Connect(ctx context.Context, portName string) error {
	t.mu.Lock()
	if t.state != StateDisconnected {
		t.mu.Unlock()
		return errors.Wrapf(ErrAlreadyConnected, "state is %s", t.state)
	}
	t.state = StateConnecting
	t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		t.setState(StateDisconnected)
		return errors.Wrap(err, "serial: connect cancelled")
	}

	name := strings.TrimSpace(portName)
	if name == "" {
		details, err := t.platform.ListPorts()
		if err != nil {
			t.setState(StateDisconnected)
			return errors.Wrap(err, "serial: connect failed")
		}
		if len(details) == 0 {
			t.setState(StateDisconnected)
			return errors.Wrap(ErrNoDeviceSelected, "serial: connect failed")
		}
		name = details[0].Name
	}

	port, err := t.platform.Open(name, DefaultMode())
	if err != nil {
		t.setState(StateDisconnected)
		return errors.Wrapf(err, "serial: open %s failed", name)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	t.mu.Lock()
	t.state = StateConnected
	t.port = port
	t.portName = name
	t.cancel = cancel
	t.done = done
	t.mu.Unlock()

	log.Info().Str("port", name).Int("baud", DefaultMode().BaudRate).Msg("serial connected")
	t.emit(Event{Type: EventConnect, Message: fmt.Sprintf("connected to %s at 115200 baud (8N1)", name)})

	go t.readLoop(loopCtx, port, name, done)
	return nil
}

// Disconnect cancels the read loop, closes the port, and waits for the loop
// to stop before emitting the disconnect event, so no session event follows
// it. The transport always ends Disconnected; a port close failure is
// returned after teardown completes.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	if t.state != StateConnected {
		t.mu.Unlock()
		return errors.Wrapf(ErrNotConnected, "state is %s", t.state)
	}
	port := t.port
	name := t.portName
	cancel := t.cancel
	done := t.done
	t.state = StateDisconnected
	t.port = nil
	t.portName = ""
	t.cancel = nil
	t.done = nil
	t.mu.Unlock()

	cancel()
	closeErr := port.Close() // unblocks the loop's pending read
	<-done

	log.Info().Str("port", name).Msg("serial disconnected")
	t.emit(Event{Type: EventDisconnect, Message: fmt.Sprintf("disconnected from %s", name)})

	if closeErr != nil {
		return errors.Wrap(closeErr, "serial: close port failed")
	}
	return nil
}

// Write sends text to the open port, appending a trailing newline when the
// text lacks one.
func (t *Transport) Write(text string) error {
	t.mu.Lock()
	port := t.port
	t.mu.Unlock()
	if port == nil {
		return errors.Wrap(ErrNotConnected, "serial: write failed")
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := port.Write([]byte(text)); err != nil {
		return errors.Wrap(err, "serial: write failed")
	}
	return nil
}

// Configure rejects live reconfiguration: ports always open at 115200 8N1,
// and changing settings requires a disconnect and reconnect.
func (t *Transport) Configure(mode Mode) error {
	log.Warn().
		Int("baud", mode.BaudRate).
		Msg("serial reconfiguration requested; reconnect required")
	return errors.Wrap(ErrReconfigureUnsupported, "serial: configure failed")
}

// readLoop delivers received chunks as data events until the port fails or
// the session is torn down. A spontaneous end of stream or read failure ends
// the session: the loop emits one error event when the cause was a failure
// (end of stream is silent), marks the transport Disconnected, and releases
// the dead port. Explicit Disconnect cancels ctx first, so the loop then
// exits without touching state. The loop never restarts itself.
func (t *Transport) readLoop(ctx context.Context, port Port, name string, done chan struct{}) {
	defer close(done)

	buf := make([]byte, readBufferSize)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := port.Read(buf)
		if n > 0 {
			t.emit(Event{Type: EventData, Message: string(buf[:n])})
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, io.EOF) {
				log.Warn().Err(err).Str("port", name).Msg("serial read failed")
				t.emit(Event{Type: EventError, Message: err.Error()})
			}
			t.markStreamEnded(port, name)
			return
		}
	}
}

// markStreamEnded moves a spontaneously terminated session to Disconnected.
// No disconnect event is emitted; only explicit Disconnect announces one. A
// session already torn down or replaced is left alone.
func (t *Transport) markStreamEnded(port Port, name string) {
	t.mu.Lock()
	if t.port != port {
		t.mu.Unlock()
		return
	}
	cancel := t.cancel
	t.state = StateDisconnected
	t.port = nil
	t.portName = ""
	t.cancel = nil
	t.done = nil
	t.mu.Unlock()

	cancel()
	if err := port.Close(); err != nil {
		log.Warn().Err(err).Str("port", name).Msg("close port after stream end failed")
	}
	log.Info().Str("port", name).Msg("serial stream ended")
}

func (t *Transport) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}
