package ezusb

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Version reported by the legacy driver build.
const (
	MajorVersion = 1
	MinorVersion = 1
	BuildVersion = 10
)

// DriverVersion is the output of IOCTL_EZUSB_GET_DRIVER_VERSION.
type DriverVersion struct {
	Major uint16 `help:"Reported major driver version" default:"1"`
	Minor uint16 `help:"Reported minor driver version" default:"1"`
	Build uint16 `help:"Reported driver build number" default:"10"`
}

// DefaultDriverVersion returns the version of the emulated driver.
func DefaultDriverVersion() DriverVersion {
	return DriverVersion{Major: MajorVersion, Minor: MinorVersion, Build: BuildVersion}
}

func (v DriverVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// Put writes the record into b, which must hold DriverVersionSize bytes.
func (v DriverVersion) Put(b []byte) {
	binary.LittleEndian.PutUint16(b[0:2], v.Major)
	binary.LittleEndian.PutUint16(b[2:4], v.Minor)
	binary.LittleEndian.PutUint16(b[4:6], v.Build)
}

func (v *DriverVersion) MarshalBinary() ([]byte, error) {
	b := make([]byte, DriverVersionSize)
	v.Put(b)
	return b, nil
}

func (v *DriverVersion) UnmarshalBinary(data []byte) error {
	if len(data) < DriverVersionSize {
		return io.ErrUnexpectedEOF
	}
	v.Major = binary.LittleEndian.Uint16(data[0:2])
	v.Minor = binary.LittleEndian.Uint16(data[2:4])
	v.Build = binary.LittleEndian.Uint16(data[4:6])
	return nil
}
