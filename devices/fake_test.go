package devices

import (
	"errors"
	"sync"
	"testing"
	"time"

	"garden-link/config"
	"garden-link/types"
)

// fakeHandle replays scripted chunks; an empty script reads as a timeout.
type fakeHandle struct {
	mu              sync.Mutex
	chunks          [][]byte
	writes          []byte
	closed          int
	reads           int
	readsAfterClose int
	readErr         error
	writeErr        error
}

func newFakeHandle(chunks ...string) *fakeHandle {
	f := &fakeHandle{}
	for _, c := range chunks {
		f.chunks = append(f.chunks, []byte(c))
	}
	return f
}

func (f *fakeHandle) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.closed > 0 {
		f.readsAfterClose++
		return 0, errors.New("port closed")
	}
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, f.chunks[0])
	if n < len(f.chunks[0]) {
		f.chunks[0] = f.chunks[0][n:]
	} else {
		f.chunks = f.chunks[1:]
	}
	return n, nil
}

func (f *fakeHandle) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes = append(f.writes, p...)
	return len(p), nil
}

func (f *fakeHandle) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeHandle) push(chunk string) {
	f.mu.Lock()
	f.chunks = append(f.chunks, []byte(chunk))
	f.mu.Unlock()
}

func (f *fakeHandle) snapshot() (writes string, closed, readsAfterClose int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.writes), f.closed, f.readsAfterClose
}

// recorder is an Observer that keeps everything it sees.
type recorder struct {
	mu         sync.Mutex
	states     []types.ConnectionState
	details    []string
	samples    []types.TelemetrySample
	categories []types.Category
}

func (r *recorder) OnConnectionStateChanged(state types.ConnectionState, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	r.details = append(r.details, detail)
}

func (r *recorder) OnSample(s types.TelemetrySample, c types.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	r.categories = append(r.categories, c)
}

func (r *recorder) values() ([]int, []types.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vals := make([]int, len(r.samples))
	for i, s := range r.samples {
		vals[i] = s.Value
	}
	return vals, append([]types.Category(nil), r.categories...)
}

func (r *recorder) stateList() []types.ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.ConnectionState(nil), r.states...)
}

func testConfig(grammar string) *config.Config {
	cfg := config.Default()
	cfg.Telemetry.Grammar = grammar
	cfg.Telemetry.IdleInterval = 5 * time.Millisecond
	cfg.Serial.ReadTimeout = 50 * time.Millisecond
	return cfg
}

func controllerPorts() ([]types.PortDescriptor, error) {
	return []types.PortDescriptor{
		{Path: "/dev/ttyS0", Description: "ttyS0"},
		{Path: "/dev/ttyACM0", Description: "Arduino Uno"},
	}, nil
}

func openerFor(h Handle, calls *int) Opener {
	return OpenerFunc(func(path string, baud int, timeout time.Duration) (Handle, error) {
		if calls != nil {
			*calls++
		}
		return h, nil
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// pollingHandle behaves like a port with a read timeout and no traffic:
// every Read blocks for the timeout it was opened with, then returns 0, nil.
type pollingHandle struct {
	mu      sync.Mutex
	timeout time.Duration
	closed  int
}

func (p *pollingHandle) Read(b []byte) (int, error) {
	p.mu.Lock()
	d := p.timeout
	p.mu.Unlock()
	time.Sleep(d)
	return 0, nil
}

func (p *pollingHandle) Write(b []byte) (int, error) { return len(b), nil }

func (p *pollingHandle) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

// stuckHandle ignores read timeouts: Read blocks until Close, then hands
// back a complete frame.
type stuckHandle struct {
	mu       sync.Mutex
	closed   int
	closedCh chan struct{}
	once     sync.Once
}

func newStuckHandle() *stuckHandle {
	return &stuckHandle{closedCh: make(chan struct{})}
}

func (s *stuckHandle) Read(b []byte) (int, error) {
	<-s.closedCh
	return copy(b, "MOISTURE:42\n"), nil
}

func (s *stuckHandle) Write(b []byte) (int, error) { return len(b), nil }

func (s *stuckHandle) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	s.once.Do(func() { close(s.closedCh) })
	return nil
}

func (s *stuckHandle) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
