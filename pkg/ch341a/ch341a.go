package ch341a

// USB identifiers for the CH341A USB-to-SPI bridge.
const (
	// VendorID is the WinChipHead (WCH) USB vendor id.
	VendorID = 0x1a86

	// ProductIDMem is the CH341A strapped for parallel/SPI memory mode.
	ProductIDMem = 0x5512

	// ProductIDSerial is the CH341A strapped for UART mode. Clone
	// programmer boards enumerate with either id, so both are matched.
	ProductIDSerial = 0x5523
)

// ProductIDs lists every product id a CH341A programmer may enumerate with.
var ProductIDs = []uint16{ProductIDMem, ProductIDSerial}

// SPI flash opcodes issued through the bridge (JEDEC standard).
const (
	// CmdReadJEDECID reads the manufacturer and device identification.
	CmdReadJEDECID = 0x9F

	// CmdRead reads data starting at a 24-bit address.
	CmdRead = 0x03

	// CmdPageProgram programs up to one page at a 24-bit address.
	CmdPageProgram = 0x02

	// CmdChipErase erases the entire array.
	CmdChipErase = 0xC7
)

const (
	// PageSize is the SPI flash page-program granularity in bytes.
	PageSize = 256

	// MaxAddress is the highest address reachable with 24-bit addressing.
	MaxAddress = 0xFFFFFF

	// IDResponseLength is the number of bytes clocked back for Read JEDEC ID.
	IDResponseLength = 4

	// MinIDResponseLength is the fewest ID bytes that still identify a chip.
	MinIDResponseLength = 3
)

// Vendor control requests understood by the bridge firmware. Command frames
// go to the device via RequestCommand; response bytes are clocked back from
// the device via RequestData.
const (
	RequestCommand = 0x01
	RequestData    = 0x02
)
