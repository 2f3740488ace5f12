// Package config declares the ezshim command line.
package config

import (
	"github.com/Alia5/ezusb-shim/internal/cmd"
	"github.com/Alia5/ezusb-shim/internal/log"
)

type CLI struct {
	ConfigFile string     `name:"config" help:"Configuration file (JSON, YAML or TOML)" env:"EZSHIM_CONFIG"`
	Log        log.Config `embed:"" prefix:"log."`

	Serve     cmd.Serve         `cmd:"" help:"Serve the device to IOCTL clients"`
	Version   cmd.Version       `cmd:"" help:"Query the driver version"`
	Vendor    cmd.Vendor        `cmd:"" help:"Issue a vendor request"`
	Bulk      cmd.Bulk          `cmd:"" help:"Bulk pipe transfers"`
	Download  cmd.Download      `cmd:"" help:"Load firmware into the device RAM"`
	Config    cmd.ConfigCommand `cmd:"" help:"Configuration helpers"`
	Install   cmd.Install       `cmd:"" help:"Install ezshim serve as a system service"`
	Uninstall cmd.Uninstall     `cmd:"" help:"Remove the system service"`
}
