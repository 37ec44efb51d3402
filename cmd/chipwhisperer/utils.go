package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/genregod/ChipWhisperer/internal/config"
	"github.com/genregod/ChipWhisperer/pkg/ch341a"
	"github.com/genregod/ChipWhisperer/pkg/chips"
	"github.com/genregod/ChipWhisperer/pkg/programmer"
	"github.com/genregod/ChipWhisperer/pkg/storage"
	"github.com/genregod/ChipWhisperer/pkg/usb"
)

func applyLogLevel(verbose bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	level, err := zerolog.ParseLevel(strings.ToLower(config.String(envLogLevel, "info")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// newProgrammer builds the production programmer with env-tunable pacing.
func newProgrammer() *programmer.Programmer {
	return programmer.New(usb.Opener{},
		programmer.WithPageDelay(config.Duration(envPageDelay, 10*time.Millisecond)),
		programmer.WithEraseRampInterval(config.Duration(envEraseRampInterval, 200*time.Millisecond)),
	)
}

func openLibrary() (*storage.Library, error) {
	return storage.Open(rootDB)
}

func resolvePortName(flag string) string {
	if name := strings.TrimSpace(flag); name != "" {
		return name
	}
	return config.String(envSerialPort, "")
}

// parseAddress accepts decimal or 0x-prefixed flash addresses up to the
// 24-bit limit.
func parseAddress(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "parse address %q", s)
	}
	if v > ch341a.MaxAddress {
		return 0, errors.Errorf("address %#x exceeds 24-bit range", v)
	}
	return uint32(v), nil
}

// progressPrinter renders operation progress on one line, finishing the line
// when the operation reaches 100%.
func progressPrinter(w io.Writer, label string) programmer.ProgressFunc {
	return func(pct float64) {
		fmt.Fprintf(w, "\r%s... %3.0f%%", label, pct)
		if pct >= 100 {
			fmt.Fprintln(w)
		}
	}
}

func printChip(w io.Writer, c chips.Chip) {
	fmt.Fprintf(w, "Name:            %s\n", c.Name)
	fmt.Fprintf(w, "Manufacturer ID: %s\n", c.ManufacturerID)
	fmt.Fprintf(w, "Device ID:       %s\n", c.DeviceID)
	fmt.Fprintf(w, "Capacity:        %s\n", c.Capacity)
	fmt.Fprintf(w, "Block size:      %d bytes\n", c.BlockSize)
	fmt.Fprintf(w, "Page size:       %d bytes\n", c.PageSize)
}
