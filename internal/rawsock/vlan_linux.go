//go:build linux

package rawsock

import "golang.org/x/sys/unix"

// restoreVLANTag puts back the tag reported in a PACKET_AUXDATA control
// message. Frames without a valid tag, or unparsable control data, are
// returned unchanged.
func restoreVLANTag(buf []byte, n int, oob []byte) int {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return n
	}
	for _, m := range msgs {
		if m.Header.Level != unix.SOL_PACKET || m.Header.Type != unix.PACKET_AUXDATA {
			continue
		}
		aux, ok := parseAuxdata(m.Data)
		if !ok || aux.Status&unix.TP_STATUS_VLAN_VALID == 0 {
			continue
		}
		tpid := uint16(0)
		if aux.Status&unix.TP_STATUS_VLAN_TPID_VALID != 0 {
			tpid = aux.VLANTPID
		}
		n = insertVLANTag(buf, n, tpid, aux.VLANTCI)
	}
	return n
}
