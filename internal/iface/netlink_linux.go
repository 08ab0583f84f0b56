//go:build linux

package iface

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/vishvananda/netlink"

	"firestige.xyz/arprobe/internal/core"
)

// linkOps is the part of the netlink API used here; *netlink.Handle satisfies it.
type linkOps interface {
	LinkByName(name string) (netlink.Link, error)
	AddrList(link netlink.Link, family int) ([]netlink.Addr, error)
}

type defaultOps struct{}

func (defaultOps) LinkByName(name string) (netlink.Link, error) { return netlink.LinkByName(name) }
func (defaultOps) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	return netlink.AddrList(link, family)
}

// NetlinkResolver queries rtnetlink instead of issuing ioctls on the socket.
type NetlinkResolver struct {
	ops linkOps
}

// NewNetlinkResolver returns a resolver backed by rtnetlink.
func NewNetlinkResolver() *NetlinkResolver {
	return &NetlinkResolver{ops: defaultOps{}}
}

// Resolve implements Resolver. fd is not used.
func (r *NetlinkResolver) Resolve(_ int, name string) (core.InterfaceIdentity, error) {
	if err := checkName(name); err != nil {
		return core.InterfaceIdentity{}, stageError(core.StageIndex, name, err)
	}

	link, err := r.ops.LinkByName(name)
	if err != nil {
		return core.InterfaceIdentity{}, stageError(core.StageIndex, name, fmt.Errorf("netlink link lookup: %w", err))
	}
	attrs := link.Attrs()

	if len(attrs.HardwareAddr) != len(core.HardwareAddr{}) {
		return core.InterfaceIdentity{}, stageError(core.StageHWAddr, name,
			fmt.Errorf("hardware address %q is not a 6-byte MAC", attrs.HardwareAddr))
	}
	var mac core.HardwareAddr
	copy(mac[:], attrs.HardwareAddr)

	addrs, err := r.ops.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return core.InterfaceIdentity{}, stageError(core.StageIPv4, name, fmt.Errorf("netlink address list: %w", err))
	}
	ip, ok := firstIPv4(addrs)
	if !ok {
		return core.InterfaceIdentity{}, stageError(core.StageIPv4, name, errors.New("no IPv4 address assigned"))
	}

	return core.InterfaceIdentity{
		Name:         name,
		Index:        attrs.Index,
		HardwareAddr: mac,
		IPv4:         ip,
	}, nil
}

func firstIPv4(addrs []netlink.Addr) (netip.Addr, bool) {
	for _, a := range addrs {
		if a.IPNet == nil {
			continue
		}
		if ip, ok := netip.AddrFromSlice(a.IP.To4()); ok && ip.Is4() {
			return ip, true
		}
	}
	return netip.Addr{}, false
}
