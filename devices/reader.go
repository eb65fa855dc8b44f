package devices

import (
	"bytes"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"garden-link/types"
	"garden-link/utils"
)

const readChunk = 64

// reader drains one handle in its own goroutine. It is started by Connect and
// stopped by Disconnect before the handle is closed.
type reader struct {
	handle  Handle
	grammar Grammar
	idle    time.Duration
	maxLine int
	log     *zap.SugaredLogger

	publish func(types.TelemetrySample)
	fault   func(Fault)
	now     func() time.Time

	pending  []byte
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newReader(h Handle, g Grammar, idle time.Duration, maxLine int, log *zap.SugaredLogger) *reader {
	return &reader{
		handle:  h,
		grammar: g,
		idle:    idle,
		maxLine: maxLine,
		log:     log,
		publish: func(types.TelemetrySample) {},
		fault:   func(Fault) {},
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (r *reader) start() { go r.run() }

func (r *reader) run() {
	defer close(r.done)
	buf := make([]byte, readChunk)
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		n, err := r.handle.Read(buf)
		if r.stopped() {
			return
		}
		if n > 0 {
			r.pending = append(r.pending, buf[:n]...)
			r.drainLines()
		}
		if err != nil {
			r.fault(Fault{Kind: ReadFailure, Err: err, At: r.now()})
			r.sleep()
			continue
		}
		if n == 0 {
			// Read timed out: whatever arrived so far is the whole line.
			r.flushPending()
			r.sleep()
		}
	}
}

// sleep idles for one interval unless a stop arrives first.
func (r *reader) sleep() {
	t := time.NewTimer(r.idle)
	defer t.Stop()
	select {
	case <-t.C:
	case <-r.stop:
	}
}

func (r *reader) drainLines() {
	for {
		i := bytes.IndexByte(r.pending, '\n')
		if i < 0 {
			break
		}
		line := string(r.pending[:i])
		r.pending = append(r.pending[:0], r.pending[i+1:]...)
		r.handleLine(line)
	}
	if len(r.pending) > r.maxLine {
		r.fault(Fault{Kind: DecodeFailure, Line: utils.FormatDataForLog(r.pending), Err: errLineTooLong, At: r.now()})
		r.pending = r.pending[:0]
	}
}

func (r *reader) flushPending() {
	if len(r.pending) == 0 {
		return
	}
	line := string(r.pending)
	r.pending = r.pending[:0]
	r.handleLine(line)
}

func (r *reader) handleLine(raw string) {
	if len(raw) > r.maxLine {
		r.fault(Fault{Kind: DecodeFailure, Line: raw[:r.maxLine], Err: errLineTooLong, At: r.now()})
		return
	}
	line := strings.TrimSpace(strings.ToValidUTF8(raw, ""))
	if line == "" {
		return
	}
	value, err := r.grammar.Decode(line)
	if err != nil {
		r.fault(Fault{Kind: DecodeFailure, Line: line, Err: err, At: r.now()})
		return
	}
	r.log.Debugw("Frame decoded", "line", line, "value", value)
	r.publish(types.TelemetrySample{Value: value, CapturedAt: r.now()})
}

func (r *reader) stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// signal asks the loop to stop at its next check; it does not wait.
func (r *reader) signal() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// stopAndWait signals and waits up to timeout for the loop to exit.
func (r *reader) stopAndWait(timeout time.Duration) bool {
	r.signal()
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-r.done:
		return true
	case <-t.C:
		return false
	}
}
