package devices

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	jserial "github.com/jacobsa/go-serial/serial"
	"go.bug.st/serial"

	"garden-link/config"
)

// Handle is an open serial channel. A Read that times out returns 0, nil.
type Handle interface {
	io.ReadWriteCloser
}

type Opener interface {
	Open(path string, baudRate int, readTimeout time.Duration) (Handle, error)
}

type OpenerFunc func(path string, baudRate int, readTimeout time.Duration) (Handle, error)

func (f OpenerFunc) Open(path string, baudRate int, readTimeout time.Duration) (Handle, error) {
	return f(path, baudRate, readTimeout)
}

// NewOpener returns the driver named in the serial config.
func NewOpener(driver string) (Opener, error) {
	switch strings.ToLower(driver) {
	case "", config.DriverBugst:
		return BugstOpener{}, nil
	case config.DriverJacobsa:
		return JacobsaOpener{}, nil
	default:
		return nil, fmt.Errorf("unknown serial driver %q", driver)
	}
}

// BugstOpener opens ports with go.bug.st/serial, 8N1.
type BugstOpener struct{}

func (BugstOpener) Open(path string, baudRate int, readTimeout time.Duration) (Handle, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, err
	}
	return port, nil
}

// JacobsaOpener opens ports with the termios-based jacobsa driver.
type JacobsaOpener struct{}

func (JacobsaOpener) Open(path string, baudRate int, readTimeout time.Duration) (Handle, error) {
	// The driver needs at least 100ms when MinimumReadSize is zero.
	ms := uint(readTimeout / time.Millisecond)
	if ms < 100 {
		ms = 100
	}
	rwc, err := jserial.Open(jserial.OpenOptions{
		PortName:              path,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            jserial.PARITY_NONE,
		InterCharacterTimeout: ms,
		MinimumReadSize:       0,
	})
	if err != nil {
		return nil, err
	}
	return jacobsaHandle{rwc}, nil
}

// jacobsaHandle maps the os.File EOF that a VTIME expiry produces to an
// empty read, matching the other driver.
type jacobsaHandle struct {
	io.ReadWriteCloser
}

func (h jacobsaHandle) Read(p []byte) (int, error) {
	n, err := h.ReadWriteCloser.Read(p)
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}
