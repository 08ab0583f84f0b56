// Package core defines core types with zero external dependencies.
package core

import (
	"fmt"
	"net/netip"
)

// MaxVLANID is the largest 802.1Q VLAN identifier (12 bits).
const MaxVLANID = 0x0FFF

// IfNameSize mirrors IFNAMSIZ, including the trailing NUL.
const IfNameSize = 16

// HardwareAddr is an EUI-48 MAC address.
type HardwareAddr [6]byte

// BroadcastAddr is the link-layer broadcast address.
var BroadcastAddr = HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func (a HardwareAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[0], a[1], a[2], a[3], a[4], a[5])
}

// MarshalText renders the address in colon notation for json/yaml reports.
func (a HardwareAddr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// InterfaceIdentity is the local link-layer and IPv4 identity of one interface.
// Populated once per probe and never modified afterwards.
type InterfaceIdentity struct {
	Name         string
	Index        int
	HardwareAddr HardwareAddr
	IPv4         netip.Addr
}

// ProbeRequest is the user's question: who owns TargetIP on VLANID.
type ProbeRequest struct {
	VLANID   uint16
	TargetIP netip.Addr
}

// Validate checks the VLAN range and that the target is an IPv4 address.
func (r ProbeRequest) Validate() error {
	if r.VLANID > MaxVLANID {
		return fmt.Errorf("%w: vlan id %d out of range 0-%d", ErrArgument, r.VLANID, MaxVLANID)
	}
	if !r.TargetIP.Is4() {
		return fmt.Errorf("%w: target %q is not an IPv4 address", ErrArgument, r.TargetIP)
	}
	return nil
}

// ProbeResult is the answer extracted from the matching ARP reply.
type ProbeResult struct {
	ResolvedMAC HardwareAddr `json:"mac" yaml:"mac"`
	ResolvedIP  netip.Addr   `json:"ip" yaml:"ip"`
	VLANID      uint16       `json:"vlan" yaml:"vlan"`
}
