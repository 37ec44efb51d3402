package chips

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		name         string
		mfr, dev     string
		wantName     string
		wantCapacity string
	}{
		{name: "winbond w25q128fv", mfr: "EF", dev: "4018", wantName: "W25Q128FV", wantCapacity: "16MB"},
		{name: "macronix mx25l6405d", mfr: "C2", dev: "2017", wantName: "MX25L6405D", wantCapacity: "8MB"},
		{name: "lower-case input", mfr: "ef", dev: "4018", wantName: "W25Q128FV", wantCapacity: "16MB"},
		{name: "unknown pair", mfr: "AA", dev: "BBBB", wantName: UnknownName, wantCapacity: UnknownCapacity},
		{name: "known mfr unknown dev", mfr: "EF", dev: "0000", wantName: UnknownName, wantCapacity: UnknownCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Lookup(tt.mfr, tt.dev)
			if c.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", c.Name, tt.wantName)
			}
			if c.Capacity != tt.wantCapacity {
				t.Errorf("Capacity = %q, want %q", c.Capacity, tt.wantCapacity)
			}
			if c.BlockSize != DefaultBlockSize {
				t.Errorf("BlockSize = %d, want %d", c.BlockSize, DefaultBlockSize)
			}
			if c.PageSize != DefaultPageSize {
				t.Errorf("PageSize = %d, want %d", c.PageSize, DefaultPageSize)
			}
		})
	}
}

func TestLookupEchoesQueriedIDs(t *testing.T) {
	c := Lookup("ab", "cdef")
	if c.ManufacturerID != "AB" || c.DeviceID != "CDEF" {
		t.Fatalf("ids = (%q, %q), want upper-cased echo (\"AB\", \"CDEF\")", c.ManufacturerID, c.DeviceID)
	}
}

func TestKnownTableComplete(t *testing.T) {
	entries := Known()
	if len(entries) != 2 {
		t.Fatalf("Known() returned %d entries, want 2", len(entries))
	}
	for _, c := range entries {
		if c.ManufacturerID == "" || c.DeviceID == "" {
			t.Errorf("entry %q missing ids", c.Name)
		}
		if got := Lookup(c.ManufacturerID, c.DeviceID); got.Name != c.Name {
			t.Errorf("Lookup(%q, %q).Name = %q, want %q", c.ManufacturerID, c.DeviceID, got.Name, c.Name)
		}
	}
}
