package rawsock

import "encoding/binary"

const (
	macHeaderLen = 12 // dst + src MAC
	vlanTagLen   = 4
	tpid8021Q    = 0x8100
)

// insertVLANTag re-inserts an 802.1Q tag the kernel stripped on receive.
// buf[:n] holds the untagged frame. The tag goes right after the MAC
// addresses; bytes pushed past len(buf) are dropped. Returns the new length.
func insertVLANTag(buf []byte, n int, tpid, tci uint16) int {
	if n < macHeaderLen || len(buf) < macHeaderLen+vlanTagLen {
		return n
	}
	if tpid == 0 {
		tpid = tpid8021Q
	}

	end := n + vlanTagLen
	if end > len(buf) {
		end = len(buf)
	}
	copy(buf[macHeaderLen+vlanTagLen:end], buf[macHeaderLen:n])
	binary.BigEndian.PutUint16(buf[macHeaderLen:], tpid)
	binary.BigEndian.PutUint16(buf[macHeaderLen+2:], tci)
	return end
}

// auxdata mirrors the fields of struct tpacket_auxdata used here.
type auxdata struct {
	Status   uint32
	VLANTCI  uint16
	VLANTPID uint16
}

const sizeofAuxdata = 20

// parseAuxdata decodes struct tpacket_auxdata in host byte order.
func parseAuxdata(b []byte) (auxdata, bool) {
	if len(b) < sizeofAuxdata {
		return auxdata{}, false
	}
	return auxdata{
		Status:   binary.NativeEndian.Uint32(b[0:4]),
		VLANTCI:  binary.NativeEndian.Uint16(b[16:18]),
		VLANTPID: binary.NativeEndian.Uint16(b[18:20]),
	}, true
}
