// Package idle measures how long the host has gone without keyboard or
// mouse input.
package idle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupported is returned when the host offers no way to read idle time.
var ErrUnsupported = errors.New("idle time not available on this host")

// probeTimeout bounds a single idle probe.
const probeTimeout = 2 * time.Second

// Detector reports the time since the last user input.
type Detector interface {
	Idle(ctx context.Context) (time.Duration, error)
}

// Func adapts a plain function to Detector.
type Func func(ctx context.Context) (time.Duration, error)

// Idle calls f.
func (f Func) Idle(ctx context.Context) (time.Duration, error) { return f(ctx) }

// Command runs an external program and parses its output.
type Command struct {
	Name  string
	Args  []string
	Parse func(out []byte) (time.Duration, error)
}

// Idle runs the command and parses its stdout.
func (c Command) Idle(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, fmt.Errorf("%s timed out after %s", c.Name, probeTimeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return 0, fmt.Errorf("run %s: %s", c.Name, msg)
		}
		return 0, fmt.Errorf("run %s: %w", c.Name, err)
	}
	return c.Parse(stdout.Bytes())
}

var hidIdleRe = regexp.MustCompile(`HIDIdleTime"\s*=\s*([0-9]+)`)

// ParseIOReg extracts HIDIdleTime (nanoseconds) from `ioreg -c IOHIDSystem`.
func ParseIOReg(out []byte) (time.Duration, error) {
	m := hidIdleRe.FindSubmatch(out)
	if m == nil {
		return 0, errors.New("HIDIdleTime not found in ioreg output")
	}
	ns, err := strconv.ParseInt(string(m[1]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse HIDIdleTime: %w", err)
	}
	return time.Duration(ns), nil
}

// ParseMillis reads a single integer of milliseconds, as printed by xprintidle.
func ParseMillis(out []byte) (time.Duration, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse idle milliseconds: %w", err)
	}
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Default picks the idle probe for the running OS. A non-empty override is
// split into a command line whose output is read as milliseconds.
func Default(override string) Detector {
	return forOS(runtime.GOOS, override)
}

func forOS(goos, override string) Detector {
	if fields := strings.Fields(override); len(fields) > 0 {
		return Command{Name: fields[0], Args: fields[1:], Parse: ParseMillis}
	}
	switch goos {
	case "darwin":
		return Command{Name: "/usr/sbin/ioreg", Args: []string{"-c", "IOHIDSystem"}, Parse: ParseIOReg}
	case "linux", "freebsd", "openbsd":
		return Command{Name: "xprintidle", Parse: ParseMillis}
	default:
		return Func(func(context.Context) (time.Duration, error) { return 0, ErrUnsupported })
	}
}

// Available reports whether the detector's program can be found in PATH.
func Available(d Detector) bool {
	c, ok := d.(Command)
	if !ok {
		return false
	}
	_, err := exec.LookPath(c.Name)
	return err == nil
}
