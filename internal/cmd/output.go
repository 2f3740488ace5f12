package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/Alia5/ezusb-shim/internal/log"
)

var (
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin

	isTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
)

// writeData prints data as hex on a terminal and as raw bytes otherwise,
// so the output can be piped into a file.
func writeData(data []byte) error {
	if isTerminal() {
		_, err := io.WriteString(stdout, log.Hex(data)+"\n")
		return err
	}
	_, err := stdout.Write(data)
	return err
}

func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
