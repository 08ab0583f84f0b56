package capture

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRecorder(&buf)
	require.NoError(t, err)

	first := bytes.Repeat([]byte{0xAB}, 46)
	second := bytes.Repeat([]byte{0xCD}, 60)
	ts := time.Unix(1700000000, 123000).UTC()

	require.NoError(t, r.Record(first, ts))
	require.NoError(t, r.Record(second, ts.Add(time.Millisecond)))
	assert.Equal(t, 2, r.Count())
	require.NoError(t, r.Close())

	pr, err := pcapgo.NewReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeEthernet, pr.LinkType())

	data, ci, err := pr.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, first, data)
	assert.Equal(t, 46, ci.Length)
	assert.True(t, ts.Equal(ci.Timestamp))

	data, _, err = pr.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, second, data)
}

func TestCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.pcap")
	r, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, r.Record(make([]byte, 46), time.Now()))
	require.NoError(t, r.Close())
	require.NoError(t, r.Close(), "second close is a no-op")

	info, err := os.Stat(path)
	require.NoError(t, err)
	// 24-byte file header + 16-byte record header + 46 bytes
	assert.Equal(t, int64(24+16+46), info.Size())
}

func TestCreateBadPath(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "no", "such", "dir", "x.pcap"))
	assert.Error(t, err)
}
