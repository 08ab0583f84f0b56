package frame

import "encoding/binary"

// ARP constants for Ethernet/IPv4.
const (
	ARPHardwareEthernet = 1
	ARPRequest          = 1
	ARPReply            = 2
)

// ARPMessage is the 28-byte Ethernet/IPv4 ARP payload.
// Decoding does not validate any field; see probe.MatchARP.
type ARPMessage struct {
	HardwareType    uint16
	ProtocolType    uint16
	HardwareAddrLen uint8
	ProtocolAddrLen uint8
	Opcode          uint16
	SenderMAC       [6]byte
	SenderIP        [4]byte
	TargetMAC       [6]byte
	TargetIP        [4]byte
}

// DecodeARP decodes the ARP message following the VLAN tag. data is the whole frame.
func DecodeARP(data []byte) (ARPMessage, error) {
	const off = EthernetHeaderLen + VLANHeaderLen
	if len(data) < Len {
		return ARPMessage{}, truncated("arp message", len(data), Len)
	}

	p := data[off:Len]
	var a ARPMessage
	a.HardwareType = binary.BigEndian.Uint16(p[0:2])
	a.ProtocolType = binary.BigEndian.Uint16(p[2:4])
	a.HardwareAddrLen = p[4]
	a.ProtocolAddrLen = p[5]
	a.Opcode = binary.BigEndian.Uint16(p[6:8])
	copy(a.SenderMAC[:], p[8:14])
	copy(a.SenderIP[:], p[14:18])
	copy(a.TargetMAC[:], p[18:24])
	copy(a.TargetIP[:], p[24:28])
	return a, nil
}

func (a ARPMessage) put(b []byte) {
	binary.BigEndian.PutUint16(b[0:2], a.HardwareType)
	binary.BigEndian.PutUint16(b[2:4], a.ProtocolType)
	b[4] = a.HardwareAddrLen
	b[5] = a.ProtocolAddrLen
	binary.BigEndian.PutUint16(b[6:8], a.Opcode)
	copy(b[8:14], a.SenderMAC[:])
	copy(b[14:18], a.SenderIP[:])
	copy(b[18:24], a.TargetMAC[:])
	copy(b[24:28], a.TargetIP[:])
}
