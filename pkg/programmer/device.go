package programmer

import (
	"context"

	"github.com/genregod/ChipWhisperer/pkg/ch341a"
)

// DeviceID identifies a USB device by vendor and product id.
type DeviceID struct {
	Vendor  uint16
	Product uint16
}

// Opener locates and opens a USB device matching one of the given ids.
// Implementations return ErrDeviceNotFound when nothing matches, so callers
// can tell an absent device apart from a transfer-level failure.
type Opener interface {
	Open(ctx context.Context, filters []DeviceID) (Device, error)
}

// Device is the control-transfer capability the programmer drives. The
// production implementation lives in pkg/usb; tests supply fakes.
type Device interface {
	// ActiveConfiguration returns the currently selected configuration
	// number, or an error when none is active.
	ActiveConfiguration() (int, error)
	SetConfiguration(num int) error
	ClaimInterface(num int) error
	ReleaseInterface(num int) error

	// ControlOut issues a vendor OUT control transfer carrying data and
	// returns the number of bytes accepted.
	ControlOut(request uint8, value, index uint16, data []byte) (int, error)

	// ControlIn issues a vendor IN control transfer and returns up to
	// length response bytes.
	ControlIn(request uint8, value, index uint16, length int) ([]byte, error)

	VendorID() uint16
	ProductID() uint16
	Close() error
}

// DefaultDeviceIDs matches every CH341A programmer variant.
func DefaultDeviceIDs() []DeviceID {
	ids := make([]DeviceID, 0, len(ch341a.ProductIDs))
	for _, pid := range ch341a.ProductIDs {
		ids = append(ids, DeviceID{Vendor: ch341a.VendorID, Product: pid})
	}
	return ids
}

// State is the programmer session lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)
