package serial

import (
	"github.com/pkg/errors"
	bugst "go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// systemPlatform enumerates and opens host ports through go.bug.st/serial.
type systemPlatform struct{}

func (systemPlatform) ListPorts() ([]PortDetail, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate ports")
	}
	details := make([]PortDetail, 0, len(ports))
	for _, p := range ports {
		details = append(details, PortDetail{
			Name:  p.Name,
			IsUSB: p.IsUSB,
			VID:   p.VID,
			PID:   p.PID,
		})
	}
	return details, nil
}

func (systemPlatform) Open(name string, mode Mode) (Port, error) {
	port, err := bugst.Open(name, &bugst.Mode{
		BaudRate: mode.BaudRate,
		DataBits: mode.DataBits,
		Parity:   bugstParity(mode.Parity),
		StopBits: bugstStopBits(mode.StopBits),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	return port, nil
}

func bugstParity(p Parity) bugst.Parity {
	switch p {
	case ParityOdd:
		return bugst.OddParity
	case ParityEven:
		return bugst.EvenParity
	default:
		return bugst.NoParity
	}
}

func bugstStopBits(s StopBits) bugst.StopBits {
	if s == StopBitsTwo {
		return bugst.TwoStopBits
	}
	return bugst.OneStopBit
}
