package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/Alia5/ezusb-shim/internal/log"
	"github.com/stretchr/testify/assert"
)

func TestRawLogger(t *testing.T) {
	var buf bytes.Buffer
	r := log.NewRaw(&buf)

	r.Log(true, []byte{0x01, 0xab})
	r.Log(false, []byte{0xff})
	r.Log(true, nil)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if !assert.Len(t, lines, 2) {
		return
	}
	assert.Contains(t, string(lines[0]), "H->D 2 bytes, hex: 01 ab")
	assert.Contains(t, string(lines[1]), "D->H 1 bytes, hex: ff")
}

func TestRawLoggerNilWriter(t *testing.T) {
	assert.NotPanics(t, func() { log.NewRaw(nil).Log(true, []byte{1}) })
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.LevelTrace, log.ParseLevel("trace"))
	assert.Equal(t, "DEBUG", log.ParseLevel("debug").String())
	assert.Equal(t, "INFO", log.ParseLevel("").String())
	assert.Equal(t, "INFO", log.ParseLevel("bogus").String())
}

func TestSetupLoggerWithFile(t *testing.T) {
	path := t.TempDir() + "/ezshim.log"
	logger, closers, err := log.SetupLogger(log.Config{Level: "debug", Format: "json", File: path})
	if !assert.NoError(t, err) {
		return
	}
	assert.Len(t, closers, 1)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, logger.Enabled(context.Background(), log.LevelTrace))
	for _, c := range closers {
		assert.NoError(t, c.Close())
	}
}
