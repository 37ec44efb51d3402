package chips

import "strings"

// Chip describes an SPI flash part identified by its JEDEC id pair.
type Chip struct {
	ManufacturerID string
	DeviceID       string
	Name           string
	Capacity       string
	BlockSize      int
	PageSize       int
}

// Geometry applied when a part is missing from the table.
const (
	DefaultBlockSize = 64 * 1024
	DefaultPageSize  = 256
)

// Labels for parts missing from the table.
const (
	UnknownName     = "Unknown Chip"
	UnknownCapacity = "Unknown"
)

type idPair struct {
	mfr string
	dev string
}

// known maps JEDEC id pairs (upper-case hex) to chip identities.
var known = map[idPair]Chip{
	{"EF", "4018"}: {Name: "W25Q128FV", Capacity: "16MB", BlockSize: DefaultBlockSize, PageSize: DefaultPageSize},
	{"C2", "2017"}: {Name: "MX25L6405D", Capacity: "8MB", BlockSize: DefaultBlockSize, PageSize: DefaultPageSize},
}

// Lookup resolves a JEDEC id pair to a chip identity. Ids match
// case-insensitively. Pairs missing from the table yield a placeholder
// identity echoing the queried ids with default geometry; Lookup never fails.
func Lookup(manufacturerID, deviceID string) Chip {
	mfr := strings.ToUpper(strings.TrimSpace(manufacturerID))
	dev := strings.ToUpper(strings.TrimSpace(deviceID))
	c, ok := known[idPair{mfr: mfr, dev: dev}]
	if !ok {
		c = Chip{
			Name:      UnknownName,
			Capacity:  UnknownCapacity,
			BlockSize: DefaultBlockSize,
			PageSize:  DefaultPageSize,
		}
	}
	c.ManufacturerID = mfr
	c.DeviceID = dev
	return c
}

// Known returns the built-in table entries with ids populated, in no
// particular order.
func Known() []Chip {
	out := make([]Chip, 0, len(known))
	for id, c := range known {
		c.ManufacturerID = id.mfr
		c.DeviceID = id.dev
		out = append(out, c)
	}
	return out
}
