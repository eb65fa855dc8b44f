package devices

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"garden-link/types"
)

// PortLister enumerates the serial ports visible to the OS, in OS order.
type PortLister func() ([]types.PortDescriptor, error)

var (
	getDetailedPortsList = enumerator.GetDetailedPortsList
	getPortsList         = serial.GetPortsList
)

// SystemPorts lists ports with their USB product strings. Platforms without
// detailed enumeration fall back to bare device names.
func SystemPorts() ([]types.PortDescriptor, error) {
	details, err := getDetailedPortsList()
	if err == nil && len(details) > 0 {
		ports := make([]types.PortDescriptor, 0, len(details))
		for _, d := range details {
			ports = append(ports, types.PortDescriptor{Path: d.Name, Description: d.Product})
		}
		return ports, nil
	}

	names, listErr := getPortsList()
	if listErr != nil {
		if err != nil {
			return nil, fmt.Errorf("enumerate ports: %w", err)
		}
		return nil, fmt.Errorf("list ports: %w", listErr)
	}
	ports := make([]types.PortDescriptor, 0, len(names))
	for _, name := range names {
		ports = append(ports, types.PortDescriptor{Path: name})
	}
	return ports, nil
}

// IsControllerPort reports whether a port looks like the garden controller's
// USB-serial bridge. It cannot tell the controller apart from another device
// on the same chip.
func IsControllerPort(p types.PortDescriptor) bool {
	name := strings.ToLower(p.Path)
	desc := strings.ToLower(p.Description)
	return strings.Contains(desc, "arduino") ||
		strings.Contains(desc, "ch340") ||
		strings.Contains(name, "usbserial") ||
		strings.Contains(name, "usbmodem")
}

// SelectPort returns the first matching port in the given order.
func SelectPort(ports []types.PortDescriptor) (types.PortDescriptor, bool) {
	for _, p := range ports {
		if IsControllerPort(p) {
			return p, true
		}
	}
	return types.PortDescriptor{}, false
}

// Discover enumerates with lister and selects the controller port.
func Discover(lister PortLister) (types.PortDescriptor, bool, error) {
	ports, err := lister()
	if err != nil {
		return types.PortDescriptor{}, false, err
	}
	p, ok := SelectPort(ports)
	return p, ok, nil
}
