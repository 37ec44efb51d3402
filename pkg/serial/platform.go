package serial

import "io"

// Port is an open serial connection. Close unblocks a pending Read, which
// is how the transport cancels its read loop.
type Port interface {
	io.ReadWriteCloser
}

// PortDetail is one enumerated system port.
type PortDetail struct {
	Name  string
	IsUSB bool
	VID   string
	PID   string
}

// Platform supplies port enumeration and opening. Platforms without
// enumeration support return an empty list, not an error. The production
// implementation wraps go.bug.st/serial; tests supply fakes.
type Platform interface {
	ListPorts() ([]PortDetail, error)
	Open(name string, mode Mode) (Port, error)
}

// Parity settings for an opened port.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// StopBits settings for an opened port.
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsTwo
)

// Mode is the line discipline for an opened port.
type Mode struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
}

// DefaultMode is the fixed line discipline every connection opens with:
// 115200 baud, 8 data bits, no parity, one stop bit, no flow control.
func DefaultMode() Mode {
	return Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   ParityNone,
		StopBits: StopBitsOne,
	}
}
