package frame

// VLANARPFrame is Ethernet header, 802.1Q tag and ARP message back to back.
type VLANARPFrame struct {
	Ethernet EthernetHeader
	VLAN     VLANTag
	ARP      ARPMessage
}

// Encode lays out the three headers into a new Len-byte buffer, network byte order.
func Encode(eth EthernetHeader, vlan VLANTag, arp ARPMessage) []byte {
	b := make([]byte, Len)
	eth.put(b[0:EthernetHeaderLen])
	vlan.put(b[EthernetHeaderLen : EthernetHeaderLen+VLANHeaderLen])
	arp.put(b[EthernetHeaderLen+VLANHeaderLen : Len])
	return b
}

// Marshal encodes f.
func (f VLANARPFrame) Marshal() []byte {
	return Encode(f.Ethernet, f.VLAN, f.ARP)
}

// Decode decodes a complete frame. Buffers shorter than Len yield ErrTruncated
// and a zero frame; extra trailing bytes (Ethernet padding, FCS) are ignored.
func Decode(data []byte) (VLANARPFrame, error) {
	if len(data) < Len {
		return VLANARPFrame{}, truncated("vlan arp frame", len(data), Len)
	}

	// Length is checked above, the per-layer decoders cannot fail.
	eth, _ := DecodeEthernet(data)
	vlan, _ := DecodeVLAN(data)
	arp, _ := DecodeARP(data)
	return VLANARPFrame{Ethernet: eth, VLAN: vlan, ARP: arp}, nil
}
