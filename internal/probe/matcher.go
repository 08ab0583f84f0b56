package probe

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	"firestige.xyz/arprobe/internal/core"
	"firestige.xyz/arprobe/internal/frame"
)

// DefaultBufferSize holds one full Ethernet frame at the standard MTU.
const DefaultBufferSize = 1514

// minRearm keeps a re-armed SO_RCVTIMEO from rounding down to zero, which
// the kernel reads as "no timeout".
const minRearm = time.Millisecond

// State is one step of the reply matching loop.
type State int

const (
	StateReceive State = iota
	StateLengthCheck
	StateEthernetFilter
	StateVLANFilter
	StateARPFilter
	StateMatched
	StateFatal
)

var stateNames = [...]string{
	StateReceive:        "receive",
	StateLengthCheck:    "length",
	StateEthernetFilter: "ethernet",
	StateVLANFilter:     "vlan",
	StateARPFilter:      "arp",
	StateMatched:        "matched",
	StateFatal:          "fatal",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// FrameReader is the receive side of a raw socket.
type FrameReader interface {
	ReadFrame(buf []byte) (int, error)
}

// readTimeoutSetter is implemented by readers whose receive can be bounded.
type readTimeoutSetter interface {
	SetReadTimeout(d time.Duration) error
}

// Observer is told about every frame the matcher looks at. Implementations
// must not retain data after returning.
type Observer interface {
	FrameReceived(data []byte)
	FrameDiscarded(stage State, data []byte)
	FrameMatched(data []byte)
}

// MatchEthernet accepts frames addressed to the local MAC that carry an 802.1Q tag.
func MatchEthernet(h frame.EthernetHeader, local core.InterfaceIdentity) bool {
	return h.DstMAC == local.HardwareAddr && h.EtherType == frame.EtherTypeVLAN
}

// MatchVLAN accepts tags on the probed VLAN that encapsulate ARP.
func MatchVLAN(v frame.VLANTag, req core.ProbeRequest) bool {
	return v.VLANID&core.MaxVLANID == req.VLANID&core.MaxVLANID && v.EtherType == frame.EtherTypeARP
}

// MatchARP accepts replies sent by the probed address to the local address.
func MatchARP(a frame.ARPMessage, local core.InterfaceIdentity, req core.ProbeRequest) bool {
	return a.Opcode == frame.ARPReply &&
		netip.AddrFrom4(a.TargetIP) == local.IPv4.Unmap() &&
		netip.AddrFrom4(a.SenderIP) == req.TargetIP.Unmap()
}

// Matcher reads frames until one answers Request.
type Matcher struct {
	Local   core.InterfaceIdentity
	Request core.ProbeRequest

	// BufferSize bounds a single receive. Zero means DefaultBufferSize.
	BufferSize int

	// Timeout bounds the whole wait when positive. The reader must then
	// implement SetReadTimeout; it is re-armed with the remaining time
	// before every receive.
	Timeout time.Duration

	Observer Observer

	now func() time.Time
}

// Run drives the state machine until a reply matches or a receive fails.
// Discarded frames are never errors.
func (m *Matcher) Run(r FrameReader) (core.ProbeResult, error) {
	size := m.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	if size < frame.Len {
		return core.ProbeResult{}, fmt.Errorf("%w: receive buffer %d smaller than %d", core.ErrArgument, size, frame.Len)
	}
	now := m.now
	if now == nil {
		now = time.Now
	}
	var deadline time.Time
	if m.Timeout > 0 {
		deadline = now().Add(m.Timeout)
	}

	var (
		buf   = make([]byte, size)
		data  []byte
		arp   frame.ARPMessage
		fatal error
		state = StateReceive
	)
	for {
		switch state {
		case StateReceive:
			n, err := m.receive(r, buf, deadline, now)
			if err != nil {
				fatal = err
				state = StateFatal
				continue
			}
			data = buf[:n]
			m.received(data)
			state = StateLengthCheck

		case StateLengthCheck:
			if len(data) < frame.Len {
				state = m.discard(StateLengthCheck, data)
				continue
			}
			state = StateEthernetFilter

		case StateEthernetFilter:
			eth, _ := frame.DecodeEthernet(data)
			if !MatchEthernet(eth, m.Local) {
				state = m.discard(StateEthernetFilter, data)
				continue
			}
			state = StateVLANFilter

		case StateVLANFilter:
			vlan, _ := frame.DecodeVLAN(data)
			if !MatchVLAN(vlan, m.Request) {
				state = m.discard(StateVLANFilter, data)
				continue
			}
			state = StateARPFilter

		case StateARPFilter:
			arp, _ = frame.DecodeARP(data)
			if !MatchARP(arp, m.Local, m.Request) {
				state = m.discard(StateARPFilter, data)
				continue
			}
			state = StateMatched

		case StateMatched:
			if m.Observer != nil {
				m.Observer.FrameMatched(data)
			}
			return core.ProbeResult{
				ResolvedMAC: arp.SenderMAC,
				ResolvedIP:  netip.AddrFrom4(arp.SenderIP),
				VLANID:      m.Request.VLANID & core.MaxVLANID,
			}, nil

		case StateFatal:
			return core.ProbeResult{}, fatal

		default:
			return core.ProbeResult{}, fmt.Errorf("%w: matcher in unknown %v", core.ErrReceive, state)
		}
	}
}

func (m *Matcher) receive(r FrameReader, buf []byte, deadline time.Time, now func() time.Time) (int, error) {
	if !deadline.IsZero() {
		remaining := deadline.Sub(now())
		if remaining <= 0 {
			return 0, fmt.Errorf("%w after %v", core.ErrProbeTimeout, m.Timeout)
		}
		if ts, ok := r.(readTimeoutSetter); ok {
			if err := ts.SetReadTimeout(max(remaining, minRearm)); err != nil {
				return 0, fmt.Errorf("%w: %w", core.ErrReceive, err)
			}
		}
	}

	n, err := r.ReadFrame(buf)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return 0, fmt.Errorf("%w after %v", core.ErrProbeTimeout, m.Timeout)
	default:
		return 0, fmt.Errorf("%w: %w", core.ErrReceive, err)
	}
}

func (m *Matcher) received(data []byte) {
	if m.Observer != nil {
		m.Observer.FrameReceived(data)
	}
}

func (m *Matcher) discard(stage State, data []byte) State {
	if m.Observer != nil {
		m.Observer.FrameDiscarded(stage, data)
	}
	return StateReceive
}
