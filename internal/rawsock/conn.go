// Package rawsock wraps an AF_PACKET raw socket for sending and receiving
// whole Ethernet frames.
package rawsock

import (
	"encoding/binary"
	"time"

	"golang.org/x/net/bpf"

	"firestige.xyz/arprobe/internal/core"
)

// EtherTypeAll is ETH_P_ALL: receive every protocol.
const EtherTypeAll = 0x0003

// Socket is the subset of *Conn the prober depends on.
type Socket interface {
	FD() int
	Bind(ifindex int) error
	AttachFilter(prog []bpf.RawInstruction) error
	EnableVLANRestore() error
	SetReadTimeout(d time.Duration) error
	WriteTo(frame []byte, ifindex int, dst core.HardwareAddr) error
	ReadFrame(buf []byte) (int, error)
	Close() error
}

// Opener creates a raw socket for one ethertype.
type Opener func(etherType uint16) (Socket, error)

// DefaultOpener opens a real AF_PACKET socket.
func DefaultOpener(etherType uint16) (Socket, error) {
	c, err := Open(etherType)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// htons converts a host-order uint16 to network order as the kernel expects
// in sockaddr_ll and socket(2) protocol arguments.
func htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.NativeEndian.Uint16(b[:])
}
