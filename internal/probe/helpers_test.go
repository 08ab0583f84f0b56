package probe

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/net/bpf"

	"firestige.xyz/arprobe/internal/core"
	"firestige.xyz/arprobe/internal/frame"
)

var (
	localMAC  = core.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	peerMAC   = core.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x09}
	otherMAC  = core.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x77}
	localIP   = netip.MustParseAddr("10.0.0.5")
	targetIP  = netip.MustParseAddr("10.0.0.9")
	strangeIP = netip.MustParseAddr("10.0.0.99")

	local = core.InterfaceIdentity{
		Name:         "eth0",
		Index:        7,
		HardwareAddr: localMAC,
		IPv4:         localIP,
	}
	request = core.ProbeRequest{VLANID: 50, TargetIP: targetIP}
)

// reply builds a well-formed answer to request; mutate tweaks it before encoding.
func reply(mutate func(f *frame.VLANARPFrame)) []byte {
	f := frame.VLANARPFrame{
		Ethernet: frame.EthernetHeader{
			DstMAC:    localMAC,
			SrcMAC:    peerMAC,
			EtherType: frame.EtherTypeVLAN,
		},
		VLAN: frame.VLANTag{VLANID: 50, EtherType: frame.EtherTypeARP},
		ARP: frame.ARPMessage{
			HardwareType:    frame.ARPHardwareEthernet,
			ProtocolType:    frame.EtherTypeIPv4,
			HardwareAddrLen: 6,
			ProtocolAddrLen: 4,
			Opcode:          frame.ARPReply,
			SenderMAC:       peerMAC,
			SenderIP:        targetIP.As4(),
			TargetMAC:       localMAC,
			TargetIP:        localIP.As4(),
		},
	}
	if mutate != nil {
		mutate(&f)
	}
	return f.Marshal()
}

// fakeSocket replays queued frames and records everything the prober does.
type fakeSocket struct {
	frames  [][]byte
	readErr error // returned once frames run out; nil means timeout

	bindErr   error
	filterErr error
	writeErr  error

	bound       int
	filter      []bpf.RawInstruction
	vlanRestore bool
	timeouts    []time.Duration
	written     [][]byte
	writeIndex  int
	writeDst    core.HardwareAddr
	reads       int
	closed      int
}

func (s *fakeSocket) FD() int { return 42 }

func (s *fakeSocket) Bind(ifindex int) error {
	s.bound = ifindex
	return s.bindErr
}

func (s *fakeSocket) AttachFilter(prog []bpf.RawInstruction) error {
	s.filter = prog
	return s.filterErr
}

func (s *fakeSocket) EnableVLANRestore() error {
	s.vlanRestore = true
	return nil
}

func (s *fakeSocket) SetReadTimeout(d time.Duration) error {
	s.timeouts = append(s.timeouts, d)
	return nil
}

func (s *fakeSocket) WriteTo(b []byte, ifindex int, dst core.HardwareAddr) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.written = append(s.written, append([]byte(nil), b...))
	s.writeIndex = ifindex
	s.writeDst = dst
	return nil
}

func (s *fakeSocket) ReadFrame(buf []byte) (int, error) {
	s.reads++
	if len(s.frames) == 0 {
		if s.readErr != nil {
			return 0, s.readErr
		}
		return 0, fmt.Errorf("recvfrom: %w", os.ErrDeadlineExceeded)
	}
	n := copy(buf, s.frames[0])
	s.frames = s.frames[1:]
	return n, nil
}

func (s *fakeSocket) Close() error {
	s.closed++
	return nil
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(fd int, name string) (core.InterfaceIdentity, error) {
	args := m.Called(fd, name)
	return args.Get(0).(core.InterfaceIdentity), args.Error(1)
}

// recordingObserver keeps the discard stages in arrival order.
type recordingObserver struct {
	received  int
	discarded []State
	matched   [][]byte
}

func (o *recordingObserver) FrameReceived([]byte) { o.received++ }

func (o *recordingObserver) FrameDiscarded(stage State, _ []byte) {
	o.discarded = append(o.discarded, stage)
}

func (o *recordingObserver) FrameMatched(data []byte) {
	o.matched = append(o.matched, append([]byte(nil), data...))
}

type recordedFrame struct {
	data []byte
	ts   time.Time
}

type fakeRecorder struct {
	frames []recordedFrame
	err    error
}

func (r *fakeRecorder) Record(data []byte, ts time.Time) error {
	r.frames = append(r.frames, recordedFrame{data: append([]byte(nil), data...), ts: ts})
	return r.err
}
