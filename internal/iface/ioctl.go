package iface

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"

	"firestige.xyz/arprobe/internal/core"
)

// Linux ioctl request numbers from <linux/sockios.h>.
const (
	siocgifaddr   = 0x8915
	siocgifhwaddr = 0x8927
	siocgifindex  = 0x8933

	afInet      = 2
	arphrdEther = 1
)

// ifreq is struct ifreq: a NUL-padded name followed by a 24-byte union.
type ifreq struct {
	Name  [core.IfNameSize]byte
	Union [24]byte
}

func newIfreq(name string) *ifreq {
	var ifr ifreq
	copy(ifr.Name[:core.IfNameSize-1], name)
	return &ifr
}

// ifindex reads ifr_ifindex.
func (r *ifreq) ifindex() int {
	return int(int32(binary.NativeEndian.Uint32(r.Union[0:4])))
}

// hwaddr reads ifr_hwaddr: sa_family then sa_data.
func (r *ifreq) hwaddr() (family uint16, mac core.HardwareAddr) {
	family = binary.NativeEndian.Uint16(r.Union[0:2])
	copy(mac[:], r.Union[2:8])
	return family, mac
}

// setFamily sets ifr_addr.sa_family.
func (r *ifreq) setFamily(family uint16) {
	binary.NativeEndian.PutUint16(r.Union[0:2], family)
}

// inet4 reads ifr_addr as a sockaddr_in.
func (r *ifreq) inet4() (netip.Addr, error) {
	if fam := binary.NativeEndian.Uint16(r.Union[0:2]); fam != afInet {
		return netip.Addr{}, fmt.Errorf("address family %d is not AF_INET", fam)
	}
	return netip.AddrFrom4([4]byte(r.Union[4:8])), nil
}

// ioctlFunc issues one interface ioctl on fd.
type ioctlFunc func(fd int, req uint, ifr *ifreq) error

// IoctlResolver uses SIOCGIFINDEX, SIOCGIFHWADDR and SIOCGIFADDR on the
// probe's own socket, in that order.
type IoctlResolver struct {
	ioctl ioctlFunc
}

// NewIoctlResolver returns a resolver backed by ioctl(2).
func NewIoctlResolver() *IoctlResolver {
	return &IoctlResolver{ioctl: ioctlIfreq}
}

// Resolve implements Resolver. Nothing is returned unless all three lookups succeed.
func (r *IoctlResolver) Resolve(fd int, name string) (core.InterfaceIdentity, error) {
	if err := checkName(name); err != nil {
		return core.InterfaceIdentity{}, stageError(core.StageIndex, name, err)
	}

	ifr := newIfreq(name)
	if err := r.ioctl(fd, siocgifindex, ifr); err != nil {
		return core.InterfaceIdentity{}, stageError(core.StageIndex, name, fmt.Errorf("ioctl(SIOCGIFINDEX): %w", err))
	}
	index := ifr.ifindex()

	ifr = newIfreq(name)
	if err := r.ioctl(fd, siocgifhwaddr, ifr); err != nil {
		return core.InterfaceIdentity{}, stageError(core.StageHWAddr, name, fmt.Errorf("ioctl(SIOCGIFHWADDR): %w", err))
	}
	family, mac := ifr.hwaddr()
	if family != arphrdEther {
		return core.InterfaceIdentity{}, stageError(core.StageHWAddr, name, fmt.Errorf("hardware type %d is not Ethernet", family))
	}

	ifr = newIfreq(name)
	ifr.setFamily(afInet)
	if err := r.ioctl(fd, siocgifaddr, ifr); err != nil {
		return core.InterfaceIdentity{}, stageError(core.StageIPv4, name, fmt.Errorf("ioctl(SIOCGIFADDR): %w", err))
	}
	ip, err := ifr.inet4()
	if err != nil {
		return core.InterfaceIdentity{}, stageError(core.StageIPv4, name, err)
	}
	if ip.IsUnspecified() {
		return core.InterfaceIdentity{}, stageError(core.StageIPv4, name, errors.New("no IPv4 address assigned"))
	}

	return core.InterfaceIdentity{
		Name:         name,
		Index:        index,
		HardwareAddr: mac,
		IPv4:         ip,
	}, nil
}
