package types

import (
	"fmt"
	"strings"
	"time"
)

// PortDescriptor is a read-only snapshot of one OS serial device.
type PortDescriptor struct {
	Path        string `json:"path"`
	Description string `json:"description"`
}

type ConnectionState int32

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Failed
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TelemetrySample is one decoded moisture reading.
type TelemetrySample struct {
	Value      int       `json:"value"`
	CapturedAt time.Time `json:"captured_at"`
}

type Category int

const (
	Unknown Category = iota
	Dry
	Normal
	Wet
)

func (c Category) String() string {
	switch c {
	case Dry:
		return "dry"
	case Normal:
		return "normal"
	case Wet:
		return "wet"
	default:
		return "unknown"
	}
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

type Command int

const (
	WaterOn Command = iota
	WaterOff
	RoofOpen
	RoofClose
	RoofStop
)

var commandNames = map[Command]string{
	WaterOn:   "water_on",
	WaterOff:  "water_off",
	RoofOpen:  "roof_open",
	RoofClose: "roof_close",
	RoofStop:  "roof_stop",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// ParseCommand accepts the snake_case names used by the web panel.
func ParseCommand(name string) (Command, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for cmd, n := range commandNames {
		if n == name {
			return cmd, nil
		}
	}
	return 0, fmt.Errorf("unknown command %q", name)
}

// DeviceStatus is the JSON view of the link served to the panel.
type DeviceStatus struct {
	State         ConnectionState  `json:"state"`
	Detail        string           `json:"detail"`
	Port          string           `json:"port"`
	Grammar       string           `json:"grammar"`
	LastSample    *TelemetrySample `json:"last_sample,omitempty"`
	Category      Category         `json:"category"`
	DecodeFaults  uint64           `json:"decode_faults"`
	ReadFaults    uint64           `json:"read_faults"`
	CommandsSent  uint64           `json:"commands_sent"`
	CommandFaults uint64           `json:"command_faults"`
}

type LogMessage struct {
	Time    string `json:"time"`
	Message string `json:"message"`
	Type    string `json:"type"` // logger name: "link", "reader", "web", "system"
	Level   string `json:"level"`
}
