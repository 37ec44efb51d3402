package programmer

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/genregod/ChipWhisperer/pkg/ch341a"
	"github.com/genregod/ChipWhisperer/pkg/chips"
)

// ProgressFunc receives completion percentages from 0 to 100 as an
// operation advances. Callbacks run synchronously on the calling goroutine.
type ProgressFunc func(percent float64)

// Programmer drives a CH341A SPI programmer over vendor control transfers.
// At most one device session is held at a time. Session state is safe for
// concurrent access; data operations are not serialized against each other,
// callers sequence them.
type Programmer struct {
	opener Opener
	cfg    Config

	mu     sync.Mutex
	device Device
	state  State
}

// New creates a Programmer that locates hardware through opener.
func New(opener Opener, opts ...Option) *Programmer {
	if opener == nil {
		panic("opener cannot be nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Programmer{
		opener: opener,
		cfg:    cfg,
		state:  StateDisconnected,
	}
}

// State returns the current session state.
func (p *Programmer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Connected reports whether a device session is open.
func (p *Programmer) Connected() bool {
	return p.State() == StateConnected
}

// Connect opens the first matching CH341A device, selects configuration 1
// when none is active, and claims interface 0. Any step failing leaves the
// programmer Disconnected with no handle held. An absent or unselected
// device surfaces as ErrDeviceNotFound in the error chain.
func (p *Programmer) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateDisconnected {
		p.mu.Unlock()
		return errors.Wrapf(ErrAlreadyConnected, "state is %s", p.state)
	}
	p.state = StateConnecting
	p.mu.Unlock()

	dev, err := p.opener.Open(ctx, DefaultDeviceIDs())
	if err != nil {
		p.setState(StateDisconnected)
		return errors.Wrap(err, "programmer: connect failed")
	}

	if num, err := dev.ActiveConfiguration(); err != nil || num == 0 {
		if err := dev.SetConfiguration(1); err != nil {
			_ = dev.Close()
			p.setState(StateDisconnected)
			return errors.Wrap(err, "programmer: select configuration failed")
		}
	}
	if err := dev.ClaimInterface(0); err != nil {
		_ = dev.Close()
		p.setState(StateDisconnected)
		return errors.Wrap(err, "programmer: claim interface failed")
	}

	p.mu.Lock()
	p.device = dev
	p.state = StateConnected
	p.mu.Unlock()

	log.Info().
		Str("vendor_id", fmt.Sprintf("%04x", dev.VendorID())).
		Str("product_id", fmt.Sprintf("%04x", dev.ProductID())).
		Msg("programmer connected")
	return nil
}

// Disconnect releases the claimed interface and closes the device. Teardown
// failures are logged, not returned; the programmer always ends
// Disconnected. Disconnecting an idle programmer is a no-op.
func (p *Programmer) Disconnect() {
	p.mu.Lock()
	dev := p.device
	p.device = nil
	p.state = StateDisconnected
	p.mu.Unlock()

	if dev == nil {
		return
	}
	if err := dev.ReleaseInterface(0); err != nil {
		log.Warn().Err(err).Msg("release interface failed during disconnect")
	}
	if err := dev.Close(); err != nil {
		log.Warn().Err(err).Msg("close device failed during disconnect")
	}
	log.Info().Msg("programmer disconnected")
}

// DetectChip queries the JEDEC identification registers and resolves the
// response against the chip table. Unknown parts come back as placeholder
// identities, not errors; calling again re-queries the hardware.
func (p *Programmer) DetectChip(ctx context.Context) (chips.Chip, error) {
	dev, err := p.session()
	if err != nil {
		return chips.Chip{}, err
	}
	if err := ctx.Err(); err != nil {
		return chips.Chip{}, errors.Wrap(err, "programmer: detect cancelled")
	}
	if err := sendCommand(dev, ch341a.ReadIDCmd()); err != nil {
		return chips.Chip{}, errors.Wrap(err, "programmer: chip detection failed")
	}
	resp, err := dev.ControlIn(ch341a.RequestData, 0, 0, ch341a.IDResponseLength)
	if err != nil {
		return chips.Chip{}, errors.Wrap(err, "programmer: chip detection failed")
	}
	mfr, devID, err := ch341a.ParseIDResponse(resp)
	if err != nil {
		return chips.Chip{}, errors.Wrap(err, "programmer: failed to identify chip")
	}

	c := chips.Lookup(mfr, devID)
	log.Info().
		Str("manufacturer_id", c.ManufacturerID).
		Str("device_id", c.DeviceID).
		Str("name", c.Name).
		Msg("chip detected")
	return c, nil
}

// ReadData reads length bytes starting at address and returns them hex
// encoded, two characters per byte in address order. Reads go out in
// page-sized chunks with a progress callback after each; the final chunk is
// sized to the remainder. Any chunk failing discards the partial data.
func (p *Programmer) ReadData(ctx context.Context, address uint32, length int, onProgress ProgressFunc) (string, error) {
	dev, err := p.session()
	if err != nil {
		return "", err
	}
	if length <= 0 {
		return "", errors.Errorf("programmer: read length %d must be positive", length)
	}

	var out strings.Builder
	out.Grow(length * 2)
	done := 0
	for done < length {
		if err := ctx.Err(); err != nil {
			return "", errors.Wrap(err, "programmer: read cancelled")
		}
		chunk := length - done
		if chunk > ch341a.PageSize {
			chunk = ch341a.PageSize
		}
		cur := address + uint32(done)
		frame, err := ch341a.ReadCmd(cur)
		if err != nil {
			return "", errors.Wrap(err, "programmer: read operation failed")
		}
		if err := sendCommand(dev, frame); err != nil {
			return "", errors.Wrap(err, "programmer: read operation failed")
		}
		resp, err := dev.ControlIn(ch341a.RequestData, 0, 0, chunk)
		if err != nil {
			return "", errors.Wrap(err, "programmer: read operation failed")
		}
		if len(resp) != chunk {
			return "", errors.Errorf("programmer: short read at %#x: got %d bytes, want %d", cur, len(resp), chunk)
		}
		out.WriteString(hex.EncodeToString(resp))
		done += chunk
		p.report(onProgress, float64(done)/float64(length)*100)
	}
	return out.String(), nil
}

// WriteData programs data starting at address in page-sized chunks, pausing
// PageDelay after each page in place of write-status polling. Progress is
// cumulative over bytes sent and ends at exactly 100.
func (p *Programmer) WriteData(ctx context.Context, address uint32, data []byte, onProgress ProgressFunc) error {
	dev, err := p.session()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("programmer: write data is empty")
	}

	total := len(data)
	done := 0
	for done < total {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "programmer: write cancelled")
		}
		chunk := total - done
		if chunk > ch341a.PageSize {
			chunk = ch341a.PageSize
		}
		cur := address + uint32(done)
		frame, err := ch341a.PageProgramCmd(cur, data[done:done+chunk])
		if err != nil {
			return errors.Wrap(err, "programmer: write operation failed")
		}
		if err := sendCommand(dev, frame); err != nil {
			return errors.Wrap(err, "programmer: write operation failed")
		}
		time.Sleep(p.cfg.PageDelay)
		done += chunk
		p.report(onProgress, float64(done)/float64(total)*100)
	}
	return nil
}

// EraseChip issues a whole-array erase and reports a simulated ramp from 0
// to 100 in steps of 10. The erase opcode gives no completion feedback, so
// the percentage tracks elapsed time rather than hardware state, and the
// method returns once the ramp finishes.
func (p *Programmer) EraseChip(ctx context.Context, onProgress ProgressFunc) error {
	dev, err := p.session()
	if err != nil {
		return err
	}
	if err := sendCommand(dev, ch341a.ChipEraseCmd()); err != nil {
		return errors.Wrap(err, "programmer: erase command failed")
	}
	log.Info().Msg("chip erase issued")

	for pct := 0; pct <= 100; pct += 10 {
		p.report(onProgress, float64(pct))
		if pct == 100 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "programmer: erase wait cancelled")
		case <-time.After(p.cfg.EraseRampInterval):
		}
	}
	return nil
}

// session snapshots the open device handle, rejecting calls made while
// disconnected before any transfer is attempted.
func (p *Programmer) session() (Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device == nil {
		return nil, ErrNotConnected
	}
	return p.device, nil
}

func (p *Programmer) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Programmer) report(cb ProgressFunc, pct float64) {
	if cb != nil {
		cb(pct)
	}
}

func sendCommand(dev Device, frame []byte) error {
	n, err := dev.ControlOut(ch341a.RequestCommand, 0, 0, frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return errors.Errorf("short control write: %d of %d bytes", n, len(frame))
	}
	return nil
}
