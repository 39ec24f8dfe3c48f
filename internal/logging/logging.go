// Package logging builds the hclog logger shared by the checker and the relay.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// Options configures New.
type Options struct {
	Name string
	// File receives every record at Level and is truncated on each start.
	// Empty disables the file output.
	File  string
	Level string
	// Stdout receives Info and above. Defaults to os.Stdout.
	Stdout io.Writer
}

// New returns a logger writing to the log file and, at Info and above, to
// stdout. The returned close function releases the log file.
func New(opts Options) (hclog.InterceptLogger, func() error, error) {
	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Debug
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	var (
		out     io.Writer = io.Discard
		closeFn           = func() error { return nil }
	)
	if opts.File != "" {
		if dir := filepath.Dir(opts.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = f.Close
	}

	logger := hclog.NewInterceptLogger(&hclog.LoggerOptions{
		Name:   opts.Name,
		Level:  level,
		Output: out,
	})

	sinkLevel := hclog.Info
	if level > sinkLevel {
		sinkLevel = level
	}
	// hclog panics when asked to color anything but a file.
	color := hclog.ColorOff
	if _, ok := stdout.(*os.File); ok {
		color = hclog.AutoColor
	}
	logger.RegisterSink(hclog.NewSinkAdapter(&hclog.LoggerOptions{
		Level:  sinkLevel,
		Output: stdout,
		Color:  color,
	}))

	return logger, closeFn, nil
}
