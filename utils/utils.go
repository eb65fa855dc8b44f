package utils

import (
	"fmt"
	"strings"

	"garden-link/types"
)

// StatusText is the short label the panel shows for a link state.
func StatusText(state types.ConnectionState, detail string) string {
	switch state {
	case types.Connected:
		return fmt.Sprintf("Connected on %s", detail)
	case types.Connecting:
		return "Connecting..."
	case types.Failed:
		if detail == "not found" {
			return "Arduino not found"
		}
		return "Connection failed"
	default:
		return "Disconnected"
	}
}

// FormatDataForLog renders raw serial bytes with control and non-ASCII
// bytes escaped, so a dropped frame can be inspected in the log.
func FormatDataForLog(data []byte) string {
	if len(data) == 0 {
		return "no data"
	}

	var b strings.Builder
	b.WriteByte('"')
	for _, c := range data {
		switch {
		case c >= 32 && c <= 126:
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		default:
			fmt.Fprintf(&b, `\x%02X`, c)
		}
	}
	b.WriteByte('"')
	return fmt.Sprintf("%s (%d bytes)", b.String(), len(data))
}

// FormatHex is the fallback dump used for binary noise.
func FormatHex(data []byte) string {
	hexStr := make([]string, len(data))
	for i, c := range data {
		hexStr[i] = fmt.Sprintf("0x%02X", c)
	}
	return fmt.Sprintf("[%s]", strings.Join(hexStr, " "))
}
