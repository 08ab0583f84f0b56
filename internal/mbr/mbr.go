// Package mbr decodes the partition table of a 512-byte master boot record.
package mbr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
)

const (
	SectorSize = 512
	Signature  = 0xAA55

	tableOffset     = 446
	entrySize       = 16
	signatureOffset = 510

	statusBootable = 0x80
	typeEmpty      = 0x00
)

var (
	ErrShortSector  = errors.New("mbr: image shorter than 512 bytes")
	ErrBadSignature = errors.New("mbr: invalid boot signature")
)

// PartitionEntry is one 16-byte slot of the partition table. CHS fields are
// kept raw.
type PartitionEntry struct {
	Number         int // 1-4
	Status         uint8
	StartHead      uint8
	StartSectorCyl uint16
	Type           uint8
	EndHead        uint8
	EndSectorCyl   uint16
	StartLBA       uint32
	TotalSectors   uint32
}

// Bootable reports the active flag.
func (p PartitionEntry) Bootable() bool {
	return p.Status == statusBootable
}

// SizeMB assumes 512-byte sectors.
func (p PartitionEntry) SizeMB() float64 {
	return float64(p.TotalSectors) * SectorSize / (1 << 20)
}

// Sector is a decoded MBR.
type Sector struct {
	Partitions [4]PartitionEntry
	Signature  uint16
}

// Used returns the entries with a non-zero partition type, in table order.
func (s *Sector) Used() []PartitionEntry {
	var used []PartitionEntry
	for _, p := range s.Partitions {
		if p.Type != typeEmpty {
			used = append(used, p)
		}
	}
	return used
}

// Parse reads the first 512 bytes of r. Fields are little-endian as stored on disk.
func Parse(r io.Reader) (*Sector, error) {
	var buf [SectorSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortSector
		}
		return nil, fmt.Errorf("mbr: read sector: %w", err)
	}

	s := &Sector{Signature: binary.LittleEndian.Uint16(buf[signatureOffset:])}
	if s.Signature != Signature {
		return nil, fmt.Errorf("%w: 0x%04X", ErrBadSignature, s.Signature)
	}
	for i := range s.Partitions {
		b := buf[tableOffset+i*entrySize : tableOffset+(i+1)*entrySize]
		s.Partitions[i] = PartitionEntry{
			Number:         i + 1,
			Status:         b[0],
			StartHead:      b[1],
			StartSectorCyl: binary.LittleEndian.Uint16(b[2:4]),
			Type:           b[4],
			EndHead:        b[5],
			EndSectorCyl:   binary.LittleEndian.Uint16(b[6:8]),
			StartLBA:       binary.LittleEndian.Uint32(b[8:12]),
			TotalSectors:   binary.LittleEndian.Uint32(b[12:16]),
		}
	}
	return s, nil
}

// WriteTable prints the used partitions as an aligned table.
func WriteTable(w io.Writer, s *Sector) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Signature: 0x%04X\n", s.Signature)
	fmt.Fprintln(tw, "PARTITION\tBOOTABLE\tTYPE\tSTART LBA\tSECTORS\tSIZE (MB)")
	for _, p := range s.Used() {
		bootable := "no"
		if p.Bootable() {
			bootable = "yes"
		}
		fmt.Fprintf(tw, "P%d\t%s\t0x%02X\t%d\t%d\t%.2f\n",
			p.Number, bootable, p.Type, p.StartLBA, p.TotalSectors, p.SizeMB())
	}
	return tw.Flush()
}
