package serial

import "github.com/pkg/errors"

var (
	// ErrNotConnected rejects operations that need an open port.
	ErrNotConnected = errors.New("serial: not connected")

	// ErrAlreadyConnected rejects Connect while a session is open.
	ErrAlreadyConnected = errors.New("serial: already connected")

	// ErrNoDeviceSelected reports that no port was named and none could be
	// auto-selected.
	ErrNoDeviceSelected = errors.New("serial: no device selected")

	// ErrReconfigureUnsupported reports that an open port cannot change
	// its line settings; disconnect and reconnect instead.
	ErrReconfigureUnsupported = errors.New("serial: reconfiguration unsupported, reconnect required")
)
