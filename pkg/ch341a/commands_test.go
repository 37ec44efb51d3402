package ch341a

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReadIDCmd(t *testing.T) {
	got := ReadIDCmd()
	want := []byte{0x9F, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("ReadIDCmd() = % X, want % X", got, want)
	}
}

func TestReadCmd(t *testing.T) {
	tests := []struct {
		name    string
		addr    uint32
		want    []byte
		wantErr bool
	}{
		{name: "zero address", addr: 0, want: []byte{0x03, 0x00, 0x00, 0x00}},
		{name: "mid address big-endian", addr: 0x123456, want: []byte{0x03, 0x12, 0x34, 0x56}},
		{name: "top of range", addr: 0xFFFFFF, want: []byte{0x03, 0xFF, 0xFF, 0xFF}},
		{name: "beyond 24-bit range", addr: 0x1000000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCmd(tt.addr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ReadCmd(%#x) expected error, got nil", tt.addr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadCmd(%#x) unexpected error: %v", tt.addr, err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("ReadCmd(%#x) = % X, want % X", tt.addr, got, tt.want)
			}
		})
	}
}

func TestPageProgramCmd(t *testing.T) {
	fullPage := bytes.Repeat([]byte{0xA5}, PageSize)

	tests := []struct {
		name    string
		addr    uint32
		data    []byte
		wantErr string
	}{
		{name: "small payload", addr: 0x00AB10, data: []byte{0xDE, 0xAD}},
		{name: "full page", addr: 0, data: fullPage},
		{name: "empty data", addr: 0, data: nil, wantErr: "data is empty"},
		{name: "oversized data", addr: 0, data: append(fullPage, 0xFF), wantErr: "max 256"},
		{name: "address out of range", addr: 0x1000000, data: []byte{0x01}, wantErr: "24-bit range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := PageProgramCmd(tt.addr, tt.data)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %v, want substring %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if frame[0] != CmdPageProgram {
				t.Errorf("opcode = %#02x, want %#02x", frame[0], CmdPageProgram)
			}
			wantAddr := []byte{byte(tt.addr >> 16), byte(tt.addr >> 8), byte(tt.addr)}
			if !bytes.Equal(frame[1:4], wantAddr) {
				t.Errorf("address bytes = % X, want % X", frame[1:4], wantAddr)
			}
			if !bytes.Equal(frame[4:], tt.data) {
				t.Errorf("payload mismatch: got %d bytes, want %d", len(frame)-4, len(tt.data))
			}
			if len(frame) > 4+PageSize {
				t.Errorf("frame is %d bytes, exceeds 4+%d", len(frame), PageSize)
			}
		})
	}
}

func TestChipEraseCmd(t *testing.T) {
	got := ChipEraseCmd()
	if !bytes.Equal(got, []byte{0xC7}) {
		t.Fatalf("ChipEraseCmd() = % X, want C7", got)
	}
}

func TestParseIDResponse(t *testing.T) {
	tests := []struct {
		name     string
		resp     []byte
		wantMfr  string
		wantDev  string
		wantErr  bool
		sentinel error
	}{
		{name: "winbond with trailing byte", resp: []byte{0xEF, 0x40, 0x18, 0x00}, wantMfr: "EF", wantDev: "4018"},
		{name: "macronix exact three bytes", resp: []byte{0xC2, 0x20, 0x17}, wantMfr: "C2", wantDev: "2017"},
		{name: "low nibble padding", resp: []byte{0x01, 0x02, 0x03}, wantMfr: "01", wantDev: "0203"},
		{name: "two bytes", resp: []byte{0xEF, 0x40}, wantErr: true, sentinel: ErrShortIDResponse},
		{name: "empty", resp: nil, wantErr: true, sentinel: ErrShortIDResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mfr, dev, err := ParseIDResponse(tt.resp)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got mfr=%q dev=%q", mfr, dev)
				}
				if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
					t.Errorf("error = %v, want ErrShortIDResponse in chain", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mfr != tt.wantMfr || dev != tt.wantDev {
				t.Errorf("ParseIDResponse(% X) = (%q, %q), want (%q, %q)", tt.resp, mfr, dev, tt.wantMfr, tt.wantDev)
			}
		})
	}
}
