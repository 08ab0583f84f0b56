//go:build !linux

package rawsock

import (
	"fmt"
	"time"

	"golang.org/x/net/bpf"

	"firestige.xyz/arprobe/internal/core"
)

// Conn is unavailable outside Linux.
type Conn struct{}

// Open always fails: AF_PACKET is Linux specific.
func Open(etherType uint16) (*Conn, error) {
	return nil, fmt.Errorf("%w: %w", core.ErrSocketCreate, core.ErrUnsupportedPlatform)
}

func (c *Conn) FD() int                                      { return -1 }
func (c *Conn) Bind(int) error                               { return core.ErrUnsupportedPlatform }
func (c *Conn) AttachFilter([]bpf.RawInstruction) error      { return core.ErrUnsupportedPlatform }
func (c *Conn) EnableVLANRestore() error                     { return core.ErrUnsupportedPlatform }
func (c *Conn) SetReadTimeout(time.Duration) error           { return core.ErrUnsupportedPlatform }
func (c *Conn) WriteTo([]byte, int, core.HardwareAddr) error { return core.ErrUnsupportedPlatform }
func (c *Conn) ReadFrame([]byte) (int, error)                { return 0, core.ErrUnsupportedPlatform }
func (c *Conn) Close() error                                 { return nil }
