// Package frame encodes and decodes 802.1Q-tagged ARP frames.
package frame

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/arprobe/internal/core"
)

const (
	// Ethernet constants
	EthernetHeaderLen = 14
	VLANHeaderLen     = 4
	ARPMessageLen     = 28

	// Len is the size of a complete VLAN-tagged ARP frame. No padding.
	Len = EthernetHeaderLen + VLANHeaderLen + ARPMessageLen

	// EtherType values
	EtherTypeIPv4 = 0x0800
	EtherTypeARP  = 0x0806
	EtherTypeVLAN = 0x8100

	vlanIDMask = 0x0FFF
)

// ErrTruncated is returned for buffers shorter than the structure being decoded.
var ErrTruncated = core.ErrTruncated

// EthernetHeader is the 14-byte Ethernet II header.
type EthernetHeader struct {
	DstMAC    [6]byte
	SrcMAC    [6]byte
	EtherType uint16 // 0x8100 for tagged frames; the payload type lives in the VLAN tag
}

// VLANTag is the 4-byte 802.1Q tag that follows the Ethernet header.
type VLANTag struct {
	VLANID    uint16 // low 12 bits only, priority and DEI are always zero
	EtherType uint16 // encapsulated type
}

func truncated(what string, got, want int) error {
	return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrTruncated, what, want, got)
}

// DecodeEthernet decodes the Ethernet header at the start of data.
func DecodeEthernet(data []byte) (EthernetHeader, error) {
	if len(data) < EthernetHeaderLen {
		return EthernetHeader{}, truncated("ethernet header", len(data), EthernetHeaderLen)
	}

	var eth EthernetHeader
	copy(eth.DstMAC[:], data[0:6])
	copy(eth.SrcMAC[:], data[6:12])
	eth.EtherType = binary.BigEndian.Uint16(data[12:14])
	return eth, nil
}

func (h EthernetHeader) put(b []byte) {
	copy(b[0:6], h.DstMAC[:])
	copy(b[6:12], h.SrcMAC[:])
	binary.BigEndian.PutUint16(b[12:14], h.EtherType)
}

// DecodeVLAN decodes the 802.1Q tag found right after the Ethernet header.
// data is the whole frame.
func DecodeVLAN(data []byte) (VLANTag, error) {
	end := EthernetHeaderLen + VLANHeaderLen
	if len(data) < end {
		return VLANTag{}, truncated("vlan tag", len(data), end)
	}

	tci := binary.BigEndian.Uint16(data[EthernetHeaderLen : EthernetHeaderLen+2])
	return VLANTag{
		VLANID:    tci & vlanIDMask, // Lower 12 bits are VLAN ID
		EtherType: binary.BigEndian.Uint16(data[EthernetHeaderLen+2 : end]),
	}, nil
}

func (v VLANTag) put(b []byte) {
	binary.BigEndian.PutUint16(b[0:2], v.VLANID&vlanIDMask)
	binary.BigEndian.PutUint16(b[2:4], v.EtherType)
}
