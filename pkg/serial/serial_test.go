package serial

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

type readResult struct {
	data []byte
	err  error
}

// fakePort scripts reads through a channel so tests control exactly when the
// loop wakes up. Close unblocks a pending Read, matching the production
// port's cancel semantics.
type fakePort struct {
	reads     chan readResult
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error

	mu       sync.Mutex
	writes   [][]byte
	writeErr error
}

func newFakePort() *fakePort {
	return &fakePort{
		reads:  make(chan readResult, 16),
		closed: make(chan struct{}),
	}
}

func (p *fakePort) Read(buf []byte) (int, error) {
	select {
	case r, ok := <-p.reads:
		if !ok {
			return 0, io.EOF
		}
		n := copy(buf, r.data)
		return n, r.err
	case <-p.closed:
		return 0, errors.New("port closed")
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	p.writes = append(p.writes, cp)
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return p.closeErr
}

func (p *fakePort) written() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.writes))
	for i, w := range p.writes {
		out[i] = string(w)
	}
	return out
}

type fakePlatform struct {
	details []PortDetail
	listErr error
	openErr error

	mu     sync.Mutex
	ports  map[string]*fakePort
	opened []string
	modes  []Mode
}

func (f *fakePlatform) ListPorts() ([]PortDetail, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.details, nil
}

func (f *fakePlatform) Open(name string, mode Mode) (Port, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, name)
	f.modes = append(f.modes, mode)
	if f.openErr != nil {
		return nil, f.openErr
	}
	port, ok := f.ports[name]
	if !ok {
		return nil, errors.New("no such port")
	}
	return port, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) attach(t *Transport) {
	for _, typ := range []EventType{EventConnect, EventDisconnect, EventData, EventError} {
		t.On(typ, func(ev Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, ev)
		})
	}
}

func (r *eventRecorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *eventRecorder) types() []EventType {
	events := r.snapshot()
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func newTestTransport(details []PortDetail, ports map[string]*fakePort) (*Transport, *fakePlatform) {
	platform := &fakePlatform{details: details, ports: ports}
	return NewTransport(WithPlatform(platform)), platform
}

func singlePortSetup() (*Transport, *fakePlatform, *fakePort) {
	port := newFakePort()
	tr, platform := newTestTransport(
		[]PortDetail{{Name: "/dev/ttyUSB0", IsUSB: true, VID: "10c4", PID: "ea60"}},
		map[string]*fakePort{"/dev/ttyUSB0": port},
	)
	return tr, platform, port
}

func TestAvailablePortsLabels(t *testing.T) {
	tr, _ := newTestTransport([]PortDetail{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "10c4", PID: "ea60"},
		{Name: "/dev/ttyS0"},
	}, nil)

	infos, err := tr.AvailablePorts()
	if err != nil {
		t.Fatalf("AvailablePorts returned error: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 ports, got %d", len(infos))
	}
	if infos[0].ID != 1 || infos[0].Name != "/dev/ttyUSB0" || infos[0].Label != "USB Serial (10C4:EA60)" {
		t.Errorf("usb port info = %+v", infos[0])
	}
	if infos[1].ID != 2 || infos[1].Name != "/dev/ttyS0" || infos[1].Label != "Serial Port 2" {
		t.Errorf("plain port info = %+v", infos[1])
	}
}

func TestAvailablePortsEmpty(t *testing.T) {
	tr, _ := newTestTransport(nil, nil)
	infos, err := tr.AvailablePorts()
	if err != nil {
		t.Fatalf("AvailablePorts returned error: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected no ports, got %v", infos)
	}
}

func TestConnectOpensNamedPort(t *testing.T) {
	port := newFakePort()
	tr, platform := newTestTransport(
		[]PortDetail{{Name: "/dev/ttyUSB0"}, {Name: "/dev/ttyACM1"}},
		map[string]*fakePort{"/dev/ttyACM1": port},
	)
	rec := &eventRecorder{}
	rec.attach(tr)

	if err := tr.Connect(context.Background(), "/dev/ttyACM1"); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer tr.Disconnect()

	if !tr.Connected() {
		t.Error("Connected() = false after Connect")
	}
	if tr.PortName() != "/dev/ttyACM1" {
		t.Errorf("PortName() = %q, want /dev/ttyACM1", tr.PortName())
	}
	if len(platform.opened) != 1 || platform.opened[0] != "/dev/ttyACM1" {
		t.Errorf("opened ports = %v, want [/dev/ttyACM1]", platform.opened)
	}
	if platform.modes[0] != DefaultMode() {
		t.Errorf("open mode = %+v, want %+v", platform.modes[0], DefaultMode())
	}

	events := rec.snapshot()
	if len(events) != 1 || events[0].Type != EventConnect {
		t.Fatalf("events = %v, want single connect", rec.types())
	}
	if !strings.Contains(events[0].Message, "/dev/ttyACM1") || !strings.Contains(events[0].Message, "115200") {
		t.Errorf("connect message = %q, want port name and baud rate", events[0].Message)
	}
}

func TestConnectAutoSelectsFirstPort(t *testing.T) {
	port := newFakePort()
	tr, platform := newTestTransport(
		[]PortDetail{{Name: "/dev/ttyUSB0"}, {Name: "/dev/ttyUSB1"}},
		map[string]*fakePort{"/dev/ttyUSB0": port},
	)

	if err := tr.Connect(context.Background(), ""); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer tr.Disconnect()

	if len(platform.opened) != 1 || platform.opened[0] != "/dev/ttyUSB0" {
		t.Errorf("opened ports = %v, want first enumerated", platform.opened)
	}
}

func TestConnectNoDeviceSelected(t *testing.T) {
	tr, platform := newTestTransport(nil, nil)

	err := tr.Connect(context.Background(), "")
	if !errors.Is(err, ErrNoDeviceSelected) {
		t.Errorf("error = %v, want ErrNoDeviceSelected in chain", err)
	}
	if tr.State() != StateDisconnected {
		t.Errorf("state = %s, want %s", tr.State(), StateDisconnected)
	}
	if len(platform.opened) != 0 {
		t.Errorf("opened ports = %v, want none", platform.opened)
	}
}

func TestConnectOpenFailure(t *testing.T) {
	tr, platform := newTestTransport([]PortDetail{{Name: "/dev/ttyUSB0"}}, nil)
	platform.openErr = errors.New("device busy")

	err := tr.Connect(context.Background(), "/dev/ttyUSB0")
	if err == nil || !strings.Contains(err.Error(), "open /dev/ttyUSB0 failed") {
		t.Errorf("error = %v, want open failure", err)
	}
	if tr.Connected() {
		t.Error("Connected() = true after failed connect")
	}
}

func TestConnectWhileConnected(t *testing.T) {
	tr, _, _ := singlePortSetup()
	if err := tr.Connect(context.Background(), ""); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer tr.Disconnect()

	if err := tr.Connect(context.Background(), ""); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("error = %v, want ErrAlreadyConnected", err)
	}
}

func TestConnectCancelledContext(t *testing.T) {
	tr, _, _ := singlePortSetup()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tr.Connect(ctx, "")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", err)
	}
	if tr.State() != StateDisconnected {
		t.Errorf("state = %s, want %s", tr.State(), StateDisconnected)
	}
}

func TestWriteAppendsNewlineOnlyWhenMissing(t *testing.T) {
	tr, _, port := singlePortSetup()
	if err := tr.Connect(context.Background(), ""); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer tr.Disconnect()

	if err := tr.Write("AT"); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := tr.Write("AT\n"); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	got := port.written()
	want := []string{"AT\n", "AT\n"}
	if len(got) != len(want) {
		t.Fatalf("writes = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWriteRequiresConnection(t *testing.T) {
	tr, _ := newTestTransport(nil, nil)
	if err := tr.Write("AT"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("error = %v, want ErrNotConnected", err)
	}
}

func TestDataEventPerChunkInOrder(t *testing.T) {
	tr, _, port := singlePortSetup()
	dataCh := make(chan string, 4)
	tr.On(EventData, func(ev Event) { dataCh <- ev.Message })

	if err := tr.Connect(context.Background(), ""); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer tr.Disconnect()

	port.reads <- readResult{data: []byte("hello ")}
	port.reads <- readResult{data: []byte("world\r\nok\r\n")}

	if got := waitForString(t, dataCh); got != "hello " {
		t.Errorf("first chunk = %q, want %q", got, "hello ")
	}
	if got := waitForString(t, dataCh); got != "world\r\nok\r\n" {
		t.Errorf("second chunk = %q, want %q", got, "world\r\nok\r\n")
	}
}

func TestDisconnectOrdersEvents(t *testing.T) {
	tr, _, port := singlePortSetup()
	rec := &eventRecorder{}
	rec.attach(tr)
	dataCh := make(chan string, 4)
	tr.On(EventData, func(ev Event) { dataCh <- ev.Message })

	if err := tr.Connect(context.Background(), ""); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	port.reads <- readResult{data: []byte("ready\r\n")}
	waitForString(t, dataCh)

	if err := tr.Disconnect(); err != nil {
		t.Fatalf("Disconnect returned error: %v", err)
	}

	types := rec.types()
	want := []EventType{EventConnect, EventData, EventDisconnect}
	if len(types) != len(want) {
		t.Fatalf("event sequence = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event sequence = %v, want %v", types, want)
		}
	}

	select {
	case <-port.closed:
	default:
		t.Error("port not closed by Disconnect")
	}
	if err := tr.Write("AT"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("post-disconnect write error = %v, want ErrNotConnected", err)
	}
	if err := tr.Disconnect(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("repeat disconnect error = %v, want ErrNotConnected", err)
	}
}

func TestReadErrorEmitsSingleErrorEvent(t *testing.T) {
	tr, _, port := singlePortSetup()
	rec := &eventRecorder{}
	rec.attach(tr)
	errCh := make(chan string, 1)
	tr.On(EventError, func(ev Event) { errCh <- ev.Message })

	if err := tr.Connect(context.Background(), ""); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	port.reads <- readResult{err: errors.New("input/output error")}

	if got := waitForString(t, errCh); got != "input/output error" {
		t.Errorf("error event = %q, want read failure message", got)
	}
	waitForClose(t, port.closed)

	if tr.State() != StateDisconnected {
		t.Errorf("state = %s, want %s after read failure", tr.State(), StateDisconnected)
	}
	for _, typ := range rec.types() {
		if typ == EventDisconnect {
			t.Error("disconnect event emitted for spontaneous termination")
		}
	}
	errCount := 0
	for _, typ := range rec.types() {
		if typ == EventError {
			errCount++
		}
	}
	if errCount != 1 {
		t.Errorf("error events = %d, want 1", errCount)
	}
}

func TestStreamEndMarksDisconnected(t *testing.T) {
	tr, _, port := singlePortSetup()
	rec := &eventRecorder{}
	rec.attach(tr)

	if err := tr.Connect(context.Background(), ""); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	close(port.reads) // device gone, stream reports end of data

	waitForClose(t, port.closed)
	if tr.State() != StateDisconnected {
		t.Errorf("state = %s, want %s after stream end", tr.State(), StateDisconnected)
	}
	for _, typ := range rec.types() {
		if typ == EventError || typ == EventDisconnect {
			t.Errorf("unexpected %s event for silent stream end", typ)
		}
	}
	if err := tr.Write("AT"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("post-termination write error = %v, want ErrNotConnected", err)
	}
}

func TestConfigureRejectsLiveReconfiguration(t *testing.T) {
	tr, _, _ := singlePortSetup()
	if err := tr.Connect(context.Background(), ""); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	defer tr.Disconnect()

	mode := DefaultMode()
	mode.BaudRate = 9600
	if err := tr.Configure(mode); !errors.Is(err, ErrReconfigureUnsupported) {
		t.Errorf("error = %v, want ErrReconfigureUnsupported", err)
	}
}

func waitForString(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func waitForClose(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for port close")
	}
}
