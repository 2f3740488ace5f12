package translate

import "github.com/Alia5/ezusb-shim/ezusb"

// UnknownPolicy selects how requests with an unsupported IOCTL code are
// answered.
type UnknownPolicy string

const (
	// UnknownReject answers ERROR_INVALID_PARAMETER.
	UnknownReject UnknownPolicy = "reject"
	// UnknownIgnore answers ERROR_SUCCESS without touching the buffers.
	UnknownIgnore UnknownPolicy = "ignore"
)

// Config holds the engine options exposed on the command line.
type Config struct {
	UnknownIOCTL  UnknownPolicy       `name:"unknown-ioctl" help:"How to answer unsupported IOCTL codes" enum:"reject,ignore" default:"reject" env:"EZSHIM_UNKNOWN_IOCTL"`
	ChunkSize     int                 `help:"Anchor download control transfer size in bytes" default:"64" env:"EZSHIM_CHUNK_SIZE"`
	DriverVersion ezusb.DriverVersion `embed:"" prefix:"driver-version."`
}

// DefaultConfig returns the behavior of the newer driver translation.
func DefaultConfig() Config {
	return Config{
		UnknownIOCTL:  UnknownReject,
		ChunkSize:     DefaultChunkSize,
		DriverVersion: ezusb.DefaultDriverVersion(),
	}
}
