//go:build linux

package rawsock

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"firestige.xyz/arprobe/internal/core"
)

// Conn is an AF_PACKET SOCK_RAW socket. It is not safe for concurrent use.
type Conn struct {
	fd          int
	proto       uint16
	vlanRestore bool
	oob         []byte
}

// Open creates a raw link-layer socket receiving frames of etherType on all
// interfaces. Requires CAP_NET_RAW.
func Open(etherType uint16) (*Conn, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, int(htons(etherType)))
	if err != nil {
		return nil, fmt.Errorf("%w: socket(AF_PACKET, SOCK_RAW, 0x%04x): %w", core.ErrSocketCreate, etherType, err)
	}
	return &Conn{fd: fd, proto: etherType}, nil
}

// FD returns the socket descriptor, used for interface ioctls.
func (c *Conn) FD() int {
	return c.fd
}

// Bind scopes the socket to one interface.
func (c *Conn) Bind(ifindex int) error {
	sa := &unix.SockaddrLinklayer{
		Protocol: htons(c.proto),
		Ifindex:  ifindex,
	}
	if err := unix.Bind(c.fd, sa); err != nil {
		return fmt.Errorf("bind to ifindex %d: %w", ifindex, err)
	}
	return nil
}

// AttachFilter installs a classic BPF program on the socket.
func (c *Conn) AttachFilter(prog []bpf.RawInstruction) error {
	if len(prog) == 0 {
		return errors.New("empty bpf program")
	}
	filter := make([]unix.SockFilter, len(prog))
	for i, ins := range prog {
		filter[i] = unix.SockFilter{
			Code: ins.Op,
			Jt:   ins.Jt,
			Jf:   ins.Jf,
			K:    ins.K,
		}
	}
	fprog := unix.SockFprog{
		Len:    uint16(len(filter)),
		Filter: &filter[0],
	}
	if err := unix.SetsockoptSockFprog(c.fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &fprog); err != nil {
		return fmt.Errorf("attach bpf filter: %w", err)
	}
	return nil
}

// EnableVLANRestore asks the kernel for PACKET_AUXDATA so that tags removed
// by VLAN offload can be put back into received frames.
func (c *Conn) EnableVLANRestore() error {
	if err := unix.SetsockoptInt(c.fd, unix.SOL_PACKET, unix.PACKET_AUXDATA, 1); err != nil {
		return fmt.Errorf("enable PACKET_AUXDATA: %w", err)
	}
	c.vlanRestore = true
	c.oob = make([]byte, unix.CmsgSpace(sizeofAuxdata))
	return nil
}

// SetReadTimeout bounds each ReadFrame call. Zero blocks forever.
func (c *Conn) SetReadTimeout(d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	if err := unix.SetsockoptTimeval(c.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return fmt.Errorf("set SO_RCVTIMEO: %w", err)
	}
	return nil
}

// WriteTo transmits one complete frame out of ifindex.
func (c *Conn) WriteTo(frame []byte, ifindex int, dst core.HardwareAddr) error {
	sa := &unix.SockaddrLinklayer{
		Protocol: htons(c.proto),
		Ifindex:  ifindex,
		Halen:    uint8(len(dst)),
	}
	copy(sa.Addr[:], dst[:])
	if err := unix.Sendto(c.fd, frame, 0, sa); err != nil {
		return fmt.Errorf("sendto ifindex %d: %w", ifindex, err)
	}
	return nil
}

// ReadFrame blocks until one frame is received and copies it into buf.
// A timeout set by SetReadTimeout surfaces as os.ErrDeadlineExceeded.
func (c *Conn) ReadFrame(buf []byte) (int, error) {
	for {
		n, err := c.read(buf)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
			return 0, fmt.Errorf("recvfrom: %w", os.ErrDeadlineExceeded)
		default:
			return 0, fmt.Errorf("recvfrom: %w", err)
		}
	}
}

func (c *Conn) read(buf []byte) (int, error) {
	if !c.vlanRestore {
		n, _, err := unix.Recvfrom(c.fd, buf, 0)
		return n, err
	}

	n, oobn, _, _, err := unix.Recvmsg(c.fd, buf, c.oob, 0)
	if err != nil {
		return 0, err
	}
	return restoreVLANTag(buf, n, c.oob[:oobn]), nil
}

// Close releases the socket.
func (c *Conn) Close() error {
	if c.fd < 0 {
		return nil
	}
	err := unix.Close(c.fd)
	c.fd = -1
	return err
}
