// Package usb is the production control-transfer capability behind the
// programmer transport, backed by libusb through google/gousb.
package usb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/genregod/ChipWhisperer/pkg/programmer"
)

// Opener locates attached programmers through a fresh libusb context per
// open. The context stays alive for the lifetime of the returned device and
// is closed together with it.
type Opener struct{}

// Open claims the first attached device matching one of filters. With
// nothing attached it fails with programmer.ErrDeviceNotFound so callers can
// tell an absent device apart from a transfer-level failure.
func (Opener) Open(ctx context.Context, filters []programmer.DeviceID) (programmer.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "usb: open cancelled")
	}

	usbCtx := gousb.NewContext()
	matched := false
	devs, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if matched {
			return false
		}
		for _, id := range filters {
			if uint16(desc.Vendor) == id.Vendor && uint16(desc.Product) == id.Product {
				matched = true
				return true
			}
		}
		return false
	})
	if len(devs) == 0 {
		_ = usbCtx.Close()
		if err != nil {
			return nil, pkgerrors.Wrap(err, "usb: enumerate devices failed")
		}
		return nil, pkgerrors.Wrap(programmer.ErrDeviceNotFound, "usb: no matching programmer attached")
	}
	if err != nil {
		// A matching device opened even though another one failed to.
		log.Warn().Err(err).Msg("usb: device enumeration reported errors")
	}

	dev := devs[0]
	// A kernel serial driver may already own the CH341A; have libusb detach
	// it while interfaces are claimed.
	if err := dev.SetAutoDetach(true); err != nil {
		log.Warn().Err(err).Msg("usb: set auto-detach failed")
	}
	log.Debug().
		Str("vendor_id", fmt.Sprintf("%04x", uint16(dev.Desc.Vendor))).
		Str("product_id", fmt.Sprintf("%04x", uint16(dev.Desc.Product))).
		Msg("usb: device opened")
	return &device{ctx: usbCtx, dev: dev}, nil
}

// device adapts a gousb handle to the programmer's Device contract. Config
// and interface handles are tracked so teardown releases them in order.
type device struct {
	ctx *gousb.Context
	dev *gousb.Device

	cfg  *gousb.Config
	intf *gousb.Interface
}

func (d *device) ActiveConfiguration() (int, error) {
	num, err := d.dev.ActiveConfigNum()
	if err != nil {
		return 0, pkgerrors.Wrap(err, "usb: read active configuration failed")
	}
	return num, nil
}

func (d *device) SetConfiguration(num int) error {
	cfg, err := d.dev.Config(num)
	if err != nil {
		return pkgerrors.Wrapf(err, "usb: select configuration %d failed", num)
	}
	d.cfg = cfg
	return nil
}

func (d *device) ClaimInterface(num int) error {
	if d.cfg == nil {
		active, err := d.dev.ActiveConfigNum()
		if err != nil {
			return pkgerrors.Wrap(err, "usb: read active configuration failed")
		}
		cfg, err := d.dev.Config(active)
		if err != nil {
			return pkgerrors.Wrapf(err, "usb: open configuration %d failed", active)
		}
		d.cfg = cfg
	}
	intf, err := d.cfg.Interface(num, 0)
	if err != nil {
		return pkgerrors.Wrapf(err, "usb: claim interface %d failed", num)
	}
	d.intf = intf
	return nil
}

func (d *device) ReleaseInterface(num int) error {
	if d.intf != nil {
		d.intf.Close()
		d.intf = nil
	}
	if d.cfg != nil {
		cfg := d.cfg
		d.cfg = nil
		if err := cfg.Close(); err != nil {
			return pkgerrors.Wrap(err, "usb: release configuration failed")
		}
	}
	return nil
}

func (d *device) ControlOut(request uint8, value, index uint16, data []byte) (int, error) {
	return d.dev.Control(gousb.ControlOut|gousb.ControlVendor|gousb.ControlDevice, request, value, index, data)
}

func (d *device) ControlIn(request uint8, value, index uint16, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := d.dev.Control(gousb.ControlIn|gousb.ControlVendor|gousb.ControlDevice, request, value, index, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (d *device) VendorID() uint16  { return uint16(d.dev.Desc.Vendor) }
func (d *device) ProductID() uint16 { return uint16(d.dev.Desc.Product) }

// Close releases any still-claimed interface and configuration, then the
// device and its libusb context.
func (d *device) Close() error {
	var errs []error
	if d.intf != nil {
		d.intf.Close()
		d.intf = nil
	}
	if d.cfg != nil {
		if err := d.cfg.Close(); err != nil {
			errs = append(errs, pkgerrors.Wrap(err, "release configuration"))
		}
		d.cfg = nil
	}
	if err := d.dev.Close(); err != nil {
		errs = append(errs, pkgerrors.Wrap(err, "close device"))
	}
	if err := d.ctx.Close(); err != nil {
		errs = append(errs, pkgerrors.Wrap(err, "close usb context"))
	}
	return errors.Join(errs...)
}
