// Package capture records the probe exchange as a pcap file.
package capture

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// snapLen is large enough for any Ethernet frame the probe reads.
const snapLen = 65536

// Recorder appends frames to a pcap stream.
type Recorder struct {
	w      *pcapgo.Writer
	closer io.Closer
	count  int
}

// Create opens path for writing and emits the pcap file header.
func Create(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("capture: create %q: %w", path, err)
	}
	r, err := NewRecorder(f)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewRecorder writes an Ethernet pcap header to w.
func NewRecorder(w io.Writer) (*Recorder, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("capture: write file header: %w", err)
	}
	return &Recorder{w: pw}, nil
}

// Record appends one frame with its capture timestamp.
func (r *Recorder) Record(data []byte, ts time.Time) error {
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := r.w.WritePacket(ci, data); err != nil {
		return fmt.Errorf("capture: write packet: %w", err)
	}
	r.count++
	return nil
}

// Count returns the number of frames recorded so far.
func (r *Recorder) Count() int {
	return r.count
}

// Close releases the underlying file if the recorder owns one.
func (r *Recorder) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
