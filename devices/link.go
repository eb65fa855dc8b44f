package devices

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"garden-link/config"
	"garden-link/types"
	"garden-link/utils"
)

const (
	faultQueueLen = 64
	stopSlack     = 200 * time.Millisecond
)

var commandTokens = map[types.Command]byte{
	types.WaterOn:   config.CMD_WATER_ON,
	types.WaterOff:  config.CMD_WATER_OFF,
	types.RoofOpen:  config.CMD_ROOF_OPEN,
	types.RoofClose: config.CMD_ROOF_CLOSE,
	types.RoofStop:  config.CMD_ROOF_STOP,
}

// Token returns the wire byte for a command.
func Token(cmd types.Command) (byte, bool) {
	b, ok := commandTokens[cmd]
	return b, ok
}

// Observer receives link events. Callbacks run on the link's goroutines and
// must neither block nor call back into the link.
type Observer interface {
	OnConnectionStateChanged(state types.ConnectionState, detail string)
	OnSample(sample types.TelemetrySample, category types.Category)
}

// Options overrides the link's collaborators; zero values use the defaults.
type Options struct {
	Logger *zap.SugaredLogger
	Lister PortLister
	Opener Opener
}

// DeviceLink owns the controller connection: the serial handle, the
// telemetry reader and the latest-sample slot.
type DeviceLink struct {
	log        *zap.SugaredLogger
	lister     PortLister
	opener     Opener
	grammar    Grammar
	thresholds Thresholds

	explicitPort string
	baudRate     int
	readTimeout  time.Duration
	idle         time.Duration
	maxLine      int

	// mu serializes Connect, Disconnect and Send. The reader never takes it.
	mu     sync.Mutex
	handle Handle
	reader *reader

	stateMu sync.RWMutex
	state   types.ConnectionState
	detail  string
	port    string

	latest atomic.Pointer[types.TelemetrySample]

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObs   int

	faults        chan Fault
	decodeFaults  atomic.Uint64
	readFaults    atomic.Uint64
	commandsSent  atomic.Uint64
	commandFaults atomic.Uint64
}

// NewDeviceLink builds a disconnected link from cfg; nil cfg uses the defaults.
func NewDeviceLink(cfg *config.Config, opts Options) (*DeviceLink, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	grammar, err := ParseGrammar(cfg.Telemetry.Grammar)
	if err != nil {
		return nil, err
	}
	opener := opts.Opener
	if opener == nil {
		if opener, err = NewOpener(cfg.Serial.Driver); err != nil {
			return nil, err
		}
	}
	lister := opts.Lister
	if lister == nil {
		lister = SystemPorts
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &DeviceLink{
		log:          log.Named("link"),
		lister:       lister,
		opener:       opener,
		grammar:      grammar,
		thresholds:   ThresholdsFromConfig(cfg.Thresholds),
		explicitPort: cfg.Serial.Port,
		baudRate:     cfg.Serial.BaudRate,
		readTimeout:  cfg.Serial.ReadTimeout,
		idle:         cfg.Telemetry.IdleInterval,
		maxLine:      cfg.Telemetry.MaxLineLength,
		state:        types.Disconnected,
		observers:    make(map[int]Observer),
		faults:       make(chan Fault, faultQueueLen),
	}, nil
}

// Discover runs port discovery without touching the connection.
func (l *DeviceLink) Discover() (types.PortDescriptor, bool) {
	p, ok, err := Discover(l.lister)
	if err != nil {
		l.log.Warnw("Failed to enumerate serial ports", "error", err)
		return types.PortDescriptor{}, false
	}
	if ok {
		l.log.Debugw("Controller port candidate", "port", p.Path, "description", p.Description)
	}
	return p, ok
}

// Connect discovers and opens the controller port and starts the telemetry
// reader. It is a no-op while already connected.
func (l *DeviceLink) Connect(ctx context.Context) (types.ConnectionState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle != nil {
		return types.Connected, nil
	}
	l.setState(types.Connecting, "", "")

	port, ok := l.selectPort()
	if !ok {
		l.log.Warnw("Arduino not found")
		l.setState(types.Failed, "not found", "")
		return types.Failed, ErrPortNotFound
	}

	l.log.Infow("Opening port", "port", port.Path, "baud", l.baudRate)
	handle, err := l.open(ctx, port.Path)
	if err != nil {
		l.log.Warnw("Connection failed", "port", port.Path, "error", err)
		l.setState(types.Failed, err.Error(), "")
		return types.Failed, err
	}

	l.handle = handle
	l.setState(types.Connected, port.Path, port.Path)

	l.reader = newReader(handle, l.grammar, l.idle, l.maxLine, l.log.Named("reader"))
	l.reader.publish = l.publish
	l.reader.fault = l.reportFault
	l.reader.start()

	l.log.Infow("Connected", "port", port.Path, "grammar", l.grammar.Name())
	return types.Connected, nil
}

func (l *DeviceLink) selectPort() (types.PortDescriptor, bool) {
	if l.explicitPort != "" {
		return types.PortDescriptor{Path: l.explicitPort, Description: "configured"}, true
	}
	return l.Discover()
}

type openResult struct {
	handle Handle
	err    error
}

// open runs the driver's open in its own goroutine so ctx can bound it. A
// handle that arrives after ctx is done is closed in the background.
func (l *DeviceLink) open(ctx context.Context, path string) (Handle, error) {
	resultChan := make(chan openResult, 1)
	go func() {
		h, err := l.opener.Open(path, l.baudRate, l.pollTimeout())
		resultChan <- openResult{handle: h, err: err}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil {
			return nil, &OpenError{Port: path, Err: res.err}
		}
		return res.handle, nil
	case <-ctx.Done():
		go func() {
			if res := <-resultChan; res.handle != nil {
				_ = res.handle.Close()
			}
		}()
		return nil, &OpenError{Port: path, Err: ctx.Err()}
	}
}

// Disconnect stops the reader, then closes the handle. It returns only after
// the reader has exited.
func (l *DeviceLink) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle == nil {
		if l.State() == types.Failed {
			l.setState(types.Disconnected, "", "")
		}
		return
	}

	r := l.reader
	if !r.stopAndWait(l.stopTimeout()) {
		// Closing unblocks a driver read that ignored its timeout.
		l.log.Warnw("Reader did not stop in time; closing port under it", "timeout", l.stopTimeout())
		if err := l.handle.Close(); err != nil {
			l.log.Warnw("Close failed", "error", err)
		}
		<-r.done
	} else if err := l.handle.Close(); err != nil {
		l.log.Warnw("Close failed", "error", err)
	}

	port := l.Port()
	l.handle = nil
	l.reader = nil
	l.setState(types.Disconnected, "", "")
	l.log.Infow("Disconnected", "port", port)
}

// pollTimeout bounds one empty read so the reader sees a stop within one
// idle interval. read_timeout only lowers it further.
func (l *DeviceLink) pollTimeout() time.Duration {
	if l.readTimeout <= 0 {
		return l.idle
	}
	return min(l.readTimeout, l.idle)
}

func (l *DeviceLink) stopTimeout() time.Duration {
	return l.idle + stopSlack
}

// Send writes the command's token if connected. It reports false, nil when
// the link is not connected; nothing is acknowledged or retried.
func (l *DeviceLink) Send(cmd types.Command) (bool, error) {
	token, ok := Token(cmd)
	if !ok {
		return false, ErrUnknownCommand
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle == nil {
		l.log.Debugw("Command not sent", "command", cmd, "state", l.State())
		return false, nil
	}
	if _, err := l.handle.Write([]byte{token}); err != nil {
		l.commandFaults.Add(1)
		werr := &WriteError{Command: cmd, Err: err}
		l.log.Warnw("Command write failed", "command", cmd, "error", err)
		return false, werr
	}
	l.commandsSent.Add(1)
	l.log.Infow("Command sent", "command", cmd, "token", string(token))
	return true, nil
}

// State is the current connection state.
func (l *DeviceLink) State() types.ConnectionState {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	return l.state
}

// Port is the path of the open port, or "" when not connected.
func (l *DeviceLink) Port() string {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	return l.port
}

// LatestSample returns the most recent decoded sample, false before the first.
func (l *DeviceLink) LatestSample() (types.TelemetrySample, bool) {
	s := l.latest.Load()
	if s == nil {
		return types.TelemetrySample{}, false
	}
	return *s, true
}

// LatestCategory classifies the latest sample; Unknown when there is none.
func (l *DeviceLink) LatestCategory() types.Category {
	return l.thresholds.ClassifySample(l.latest.Load())
}

// Classify buckets a raw value with the link's thresholds.
func (l *DeviceLink) Classify(value int) types.Category {
	return l.thresholds.Classify(value)
}

// Diagnostics delivers swallowed reader faults. Faults are dropped when
// nobody drains the channel.
func (l *DeviceLink) Diagnostics() <-chan Fault {
	return l.faults
}

// Status is a point-in-time snapshot of state, latest sample and counters.
func (l *DeviceLink) Status() types.DeviceStatus {
	l.stateMu.RLock()
	st := types.DeviceStatus{
		State:  l.state,
		Detail: l.detail,
		Port:   l.port,
	}
	l.stateMu.RUnlock()

	st.Grammar = l.grammar.Name()
	if s := l.latest.Load(); s != nil {
		sample := *s
		st.LastSample = &sample
	}
	st.Category = l.thresholds.ClassifySample(st.LastSample)
	st.DecodeFaults = l.decodeFaults.Load()
	st.ReadFaults = l.readFaults.Load()
	st.CommandsSent = l.commandsSent.Load()
	st.CommandFaults = l.commandFaults.Load()
	return st
}

// AddObserver registers o and returns a function that removes it.
func (l *DeviceLink) AddObserver(o Observer) (remove func()) {
	l.obsMu.Lock()
	id := l.nextObs
	l.nextObs++
	l.observers[id] = o
	l.obsMu.Unlock()

	return func() {
		l.obsMu.Lock()
		delete(l.observers, id)
		l.obsMu.Unlock()
	}
}

func (l *DeviceLink) setState(state types.ConnectionState, detail, port string) {
	l.stateMu.Lock()
	l.state = state
	l.detail = detail
	l.port = port
	l.stateMu.Unlock()

	l.log.Debugw("State changed", "state", state, "status", utils.StatusText(state, detail))

	l.obsMu.RLock()
	defer l.obsMu.RUnlock()
	for _, o := range l.observers {
		o.OnConnectionStateChanged(state, detail)
	}
}

func (l *DeviceLink) publish(s types.TelemetrySample) {
	l.latest.Store(&s)
	category := l.thresholds.Classify(s.Value)

	l.obsMu.RLock()
	defer l.obsMu.RUnlock()
	for _, o := range l.observers {
		o.OnSample(s, category)
	}
}

func (l *DeviceLink) reportFault(f Fault) {
	switch f.Kind {
	case DecodeFailure:
		l.decodeFaults.Add(1)
		l.log.Debugw("Frame dropped", "line", f.Line, "hex", utils.FormatHex([]byte(f.Line)), "error", f.Err)
	case ReadFailure:
		// A pulled cable fails every iteration; keep the log readable.
		if n := l.readFaults.Add(1); n == 1 || n%50 == 0 {
			l.log.Warnw("Serial read failed", "error", f.Err, "count", n)
		}
	}
	select {
	case l.faults <- f:
	default:
	}
}
