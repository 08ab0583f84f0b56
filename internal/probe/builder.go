// Package probe resolves one IPv4 address to a MAC address on a VLAN by
// sending a tagged ARP request and waiting for the matching reply.
package probe

import (
	"firestige.xyz/arprobe/internal/core"
	"firestige.xyz/arprobe/internal/frame"
)

// BuildRequest assembles the broadcast ARP request asking who owns
// req.TargetIP on req.VLANID. It performs no I/O.
func BuildRequest(local core.InterfaceIdentity, req core.ProbeRequest) frame.VLANARPFrame {
	return frame.VLANARPFrame{
		Ethernet: frame.EthernetHeader{
			DstMAC:    core.BroadcastAddr,
			SrcMAC:    local.HardwareAddr,
			EtherType: frame.EtherTypeVLAN,
		},
		VLAN: frame.VLANTag{
			VLANID:    req.VLANID & core.MaxVLANID,
			EtherType: frame.EtherTypeARP,
		},
		ARP: frame.ARPMessage{
			HardwareType:    frame.ARPHardwareEthernet,
			ProtocolType:    frame.EtherTypeIPv4,
			HardwareAddrLen: 6,
			ProtocolAddrLen: 4,
			Opcode:          frame.ARPRequest,
			SenderMAC:       local.HardwareAddr,
			SenderIP:        local.IPv4.Unmap().As4(),
			TargetIP:        req.TargetIP.Unmap().As4(),
		},
	}
}
