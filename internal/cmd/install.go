package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
)

// Install registers `ezshim serve` as a system service.
type Install struct {
	ServeArgs []string `arg:"" optional:"" passthrough:"" help:"Extra arguments for the serve command, e.g. --sim"`
}

func (c *Install) Run(logger *slog.Logger) error {
	return install(logger, c.ServeArgs)
}

// Uninstall removes the system service again.
type Uninstall struct{}

func (c *Uninstall) Run(logger *slog.Logger) error {
	return uninstall(logger)
}

func currentExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(exe)
}
