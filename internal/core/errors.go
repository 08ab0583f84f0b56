// Package core defines sentinel errors.
package core

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers classify failures with errors.Is.
var (
	// Input errors
	ErrArgument      = errors.New("arprobe: invalid argument")
	ErrConfigInvalid = errors.New("arprobe: invalid configuration")

	// Socket errors
	ErrSocketCreate        = errors.New("arprobe: raw socket creation failed")
	ErrSocketSetup         = errors.New("arprobe: raw socket setup failed")
	ErrUnsupportedPlatform = errors.New("arprobe: raw link-layer sockets are not supported on this platform")

	// Interface resolution errors
	ErrResolve = errors.New("arprobe: interface resolution failed")

	// Probe I/O errors
	ErrSend         = errors.New("arprobe: send failed")
	ErrReceive      = errors.New("arprobe: receive failed")
	ErrProbeTimeout = errors.New("arprobe: no matching reply before timeout")

	// Frame decoding errors
	ErrTruncated = errors.New("arprobe: frame truncated")
)

// ResolveStage names the interface lookup that failed.
type ResolveStage string

const (
	StageIndex  ResolveStage = "index"
	StageHWAddr ResolveStage = "hwaddr"
	StageIPv4   ResolveStage = "ipv4"
)

// ResolveError reports which interface lookup failed.
type ResolveError struct {
	Stage     ResolveStage
	Interface string
	Err       error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%v: interface %q: %s lookup: %v", ErrResolve, e.Interface, e.Stage, e.Err)
}

// Unwrap exposes both the cause and ErrResolve to errors.Is.
func (e *ResolveError) Unwrap() []error {
	return []error{ErrResolve, e.Err}
}

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrArgument), errors.Is(err, ErrConfigInvalid):
		return 2
	default:
		return 1
	}
}
