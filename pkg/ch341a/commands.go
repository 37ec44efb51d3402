package ch341a

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrShortIDResponse reports a Read JEDEC ID response carrying fewer than
// MinIDResponseLength bytes.
var ErrShortIDResponse = errors.New("ch341a: short id response")

// ReadIDCmd returns the Read JEDEC ID frame (9F 00 00 00). The three
// trailing bytes clock the manufacturer and device id out of the chip.
func ReadIDCmd() []byte {
	return []byte{CmdReadJEDECID, 0x00, 0x00, 0x00}
}

// ReadCmd returns a Read Data frame for addr: the 03 opcode followed by the
// 24-bit address, most significant byte first.
func ReadCmd(addr uint32) ([]byte, error) {
	if addr > MaxAddress {
		return nil, errors.Errorf("ch341a: address %#x exceeds 24-bit range", addr)
	}
	return []byte{CmdRead, byte(addr >> 16), byte(addr >> 8), byte(addr)}, nil
}

// PageProgramCmd returns a Page Program frame: the 02 opcode, the 24-bit
// address, then the data bytes. Data must fit a single page; callers split
// larger writes into page-aligned chunks.
func PageProgramCmd(addr uint32, data []byte) ([]byte, error) {
	if addr > MaxAddress {
		return nil, errors.Errorf("ch341a: address %#x exceeds 24-bit range", addr)
	}
	if len(data) == 0 {
		return nil, errors.New("ch341a: page program data is empty")
	}
	if len(data) > PageSize {
		return nil, errors.Errorf("ch341a: page program data is %d bytes, max %d", len(data), PageSize)
	}
	frame := make([]byte, 0, 4+len(data))
	frame = append(frame, CmdPageProgram, byte(addr>>16), byte(addr>>8), byte(addr))
	frame = append(frame, data...)
	return frame, nil
}

// ChipEraseCmd returns the single-byte Chip Erase frame (C7).
func ChipEraseCmd() []byte {
	return []byte{CmdChipErase}
}

// ParseIDResponse decodes a Read JEDEC ID response into upper-case hex
// manufacturer and device id strings, e.g. "EF" and "4018". The device id
// spans response bytes 1-2, most significant byte first. Responses shorter
// than MinIDResponseLength fail with ErrShortIDResponse.
func ParseIDResponse(resp []byte) (manufacturerID, deviceID string, err error) {
	if len(resp) < MinIDResponseLength {
		return "", "", errors.Wrapf(ErrShortIDResponse, "got %d bytes, need %d", len(resp), MinIDResponseLength)
	}
	manufacturerID = fmt.Sprintf("%02X", resp[0])
	deviceID = fmt.Sprintf("%02X%02X", resp[1], resp[2])
	return manufacturerID, deviceID, nil
}
