package rawsock

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/net/bpf"

	"firestige.xyz/arprobe/internal/core"
)

const (
	etherTypeARP = 0x0806

	// acceptLen is the snap length returned for accepted frames.
	acceptLen = 0x40000
)

// progBuilder emits straight-line "require" checks that all jump to a single
// reject at the end of the block.
type progBuilder struct {
	ins    []bpf.Instruction
	fixups []int
}

func (p *progBuilder) emit(ins ...bpf.Instruction) {
	p.ins = append(p.ins, ins...)
}

func (p *progBuilder) requireEqual(val uint32) {
	p.fixups = append(p.fixups, len(p.ins))
	p.ins = append(p.ins, bpf.JumpIf{Cond: bpf.JumpEqual, Val: val})
}

func (p *progBuilder) requireDstMAC(mac core.HardwareAddr) {
	p.emit(bpf.LoadAbsolute{Off: 0, Size: 4})
	p.requireEqual(binary.BigEndian.Uint32(mac[0:4]))
	p.emit(bpf.LoadAbsolute{Off: 4, Size: 2})
	p.requireEqual(uint32(binary.BigEndian.Uint16(mac[4:6])))
}

func (p *progBuilder) finish() []bpf.Instruction {
	p.emit(bpf.RetConstant{Val: acceptLen})
	reject := len(p.ins)
	p.emit(bpf.RetConstant{Val: 0})
	for _, i := range p.fixups {
		j := p.ins[i].(bpf.JumpIf)
		j.SkipFalse = uint8(reject - i - 1)
		p.ins[i] = j
	}
	return p.ins
}

// inlineTagged accepts frames addressed to mac that carry the 802.1Q tag in
// the packet data: 0x8100 at offset 12, VLAN id at 14, ARP at 16.
func inlineTagged(mac core.HardwareAddr, vlanID uint16) []bpf.Instruction {
	var p progBuilder
	p.requireDstMAC(mac)
	p.emit(bpf.LoadAbsolute{Off: 12, Size: 2})
	p.requireEqual(tpid8021Q)
	p.emit(
		bpf.LoadAbsolute{Off: 14, Size: 2},
		bpf.ALUOpConstant{Op: bpf.ALUOpAnd, Val: core.MaxVLANID},
	)
	p.requireEqual(uint32(vlanID))
	p.emit(bpf.LoadAbsolute{Off: 16, Size: 2})
	p.requireEqual(etherTypeARP)
	return p.finish()
}

// offloadTagged accepts frames whose tag was stripped by the NIC and is only
// visible through the skb ancillary fields.
func offloadTagged(mac core.HardwareAddr, vlanID uint16) []bpf.Instruction {
	var p progBuilder
	p.requireDstMAC(mac)
	p.emit(
		bpf.LoadExtension{Num: bpf.ExtVLANTag},
		bpf.ALUOpConstant{Op: bpf.ALUOpAnd, Val: core.MaxVLANID},
	)
	p.requireEqual(uint32(vlanID))
	p.emit(bpf.LoadAbsolute{Off: 12, Size: 2})
	p.requireEqual(etherTypeARP)
	return p.finish()
}

// VLANARPFilter builds the kernel prefilter for replies to mac on vlanID.
// With offload set, frames whose tag was moved to skb metadata are also
// accepted. The result is advisory: the matcher re-checks every field.
func VLANARPFilter(mac core.HardwareAddr, vlanID uint16, offload bool) ([]bpf.Instruction, error) {
	if vlanID > core.MaxVLANID {
		return nil, fmt.Errorf("vlan id %d out of range", vlanID)
	}
	inline := inlineTagged(mac, vlanID)
	if !offload {
		return inline, nil
	}

	off := offloadTagged(mac, vlanID)
	if len(off) > 0xff {
		return nil, fmt.Errorf("offload block too long: %d instructions", len(off))
	}
	prog := []bpf.Instruction{
		bpf.LoadExtension{Num: bpf.ExtVLANTagPresent},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0, SkipTrue: uint8(len(off))},
	}
	prog = append(prog, off...)
	return append(prog, inline...), nil
}

// AssembleVLANARPFilter is VLANARPFilter followed by bpf.Assemble.
func AssembleVLANARPFilter(mac core.HardwareAddr, vlanID uint16, offload bool) ([]bpf.RawInstruction, error) {
	prog, err := VLANARPFilter(mac, vlanID, offload)
	if err != nil {
		return nil, err
	}
	raw, err := bpf.Assemble(prog)
	if err != nil {
		return nil, fmt.Errorf("assemble bpf: %w", err)
	}
	return raw, nil
}
