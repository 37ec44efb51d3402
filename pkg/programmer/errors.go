package programmer

import "github.com/pkg/errors"

var (
	// ErrNotConnected rejects data operations issued before Connect
	// succeeds. No transfer is performed.
	ErrNotConnected = errors.New("programmer: not connected")

	// ErrAlreadyConnected rejects Connect while a session is open.
	ErrAlreadyConnected = errors.New("programmer: already connected")

	// ErrDeviceNotFound reports that no CH341A device matched during
	// Connect, whether absent or not selected.
	ErrDeviceNotFound = errors.New("programmer: device not found")
)
