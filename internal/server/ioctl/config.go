package ioctl

import "time"

// ServerConfig represents the IOCTL server configuration.
type ServerConfig struct {
	Addr              string        `help:"IOCTL server listen address" default:"localhost:3250" env:"EZSHIM_IOCTL_ADDR"`
	ConnectionTimeout time.Duration `help:"Drop clients idle for this long; 0 to disable" default:"0s" env:"EZSHIM_IOCTL_CONNECTION_TIMEOUT"`
	MaxBufferSize     uint32        `help:"Largest input or output buffer accepted per request" default:"1048576" env:"EZSHIM_IOCTL_MAX_BUFFER_SIZE"`
}
