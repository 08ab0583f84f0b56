//go:build linux

package rawsock

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

// auxdataCmsg builds one control message carrying struct tpacket_auxdata.
func auxdataCmsg(level, typ int32, status uint32, tci, tpid uint16) []byte {
	b := make([]byte, unix.CmsgSpace(sizeofAuxdata))
	h := (*unix.Cmsghdr)(unsafe.Pointer(&b[0]))
	h.Level = level
	h.Type = typ
	h.SetLen(unix.CmsgLen(sizeofAuxdata))

	data := b[unix.CmsgLen(0):]
	binary.NativeEndian.PutUint32(data[0:4], status)
	binary.NativeEndian.PutUint16(data[16:18], tci)
	binary.NativeEndian.PutUint16(data[18:20], tpid)
	return b
}

func TestRestoreVLANTag(t *testing.T) {
	tests := []struct {
		name     string
		oob      []byte
		tagged   bool
		wantTPID uint16
	}{
		{
			name:     "valid tag",
			oob:      auxdataCmsg(unix.SOL_PACKET, unix.PACKET_AUXDATA, unix.TP_STATUS_VLAN_VALID, 50, 0),
			tagged:   true,
			wantTPID: 0x8100,
		},
		{
			name:     "valid tag with tpid",
			oob:      auxdataCmsg(unix.SOL_PACKET, unix.PACKET_AUXDATA, unix.TP_STATUS_VLAN_VALID|unix.TP_STATUS_VLAN_TPID_VALID, 50, 0x88A8),
			tagged:   true,
			wantTPID: 0x88A8,
		},
		{
			name: "no tag reported",
			oob:  auxdataCmsg(unix.SOL_PACKET, unix.PACKET_AUXDATA, 0, 50, 0),
		},
		{
			name: "other control message",
			oob:  auxdataCmsg(unix.SOL_SOCKET, unix.SCM_TIMESTAMP, unix.TP_STATUS_VLAN_VALID, 50, 0),
		},
		{
			name: "no control data",
			oob:  nil,
		},
		{
			name: "truncated control data",
			oob:  auxdataCmsg(unix.SOL_PACKET, unix.PACKET_AUXDATA, unix.TP_STATUS_VLAN_VALID, 50, 0)[:8],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := untaggedFrame()
			buf := make([]byte, 1514)
			n := copy(buf, frame)

			got := restoreVLANTag(buf, n, tt.oob)

			if !tt.tagged {
				assert.Equal(t, len(frame), got)
				assert.Equal(t, frame, buf[:got])
				return
			}
			assert.Equal(t, len(frame)+4, got)
			assert.Equal(t, tt.wantTPID, binary.BigEndian.Uint16(buf[12:14]))
			assert.Equal(t, uint16(50), binary.BigEndian.Uint16(buf[14:16]))
			assert.Equal(t, frame[12:], buf[16:got])
		})
	}
}
