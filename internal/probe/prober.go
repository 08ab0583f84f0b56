package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"firestige.xyz/arprobe/internal/config"
	"firestige.xyz/arprobe/internal/core"
	"firestige.xyz/arprobe/internal/frame"
	"firestige.xyz/arprobe/internal/iface"
	"firestige.xyz/arprobe/internal/log"
	"firestige.xyz/arprobe/internal/metrics"
	"firestige.xyz/arprobe/internal/rawsock"
)

// Recorder receives a copy of the request sent and the reply matched.
type Recorder interface {
	Record(data []byte, ts time.Time) error
}

// Prober runs one probe at a time. It owns the raw socket for the duration
// of Run and closes it on every return path.
type Prober struct {
	Config   config.ProbeConfig
	Opener   rawsock.Opener
	Resolver iface.Resolver
	Recorder Recorder // optional

	now func() time.Time
}

// New returns a Prober using real AF_PACKET sockets.
func New(cfg config.ProbeConfig, resolver iface.Resolver) *Prober {
	return &Prober{
		Config:   cfg,
		Opener:   rawsock.DefaultOpener,
		Resolver: resolver,
		now:      time.Now,
	}
}

// Outcome is a probe result together with the identity it was sent from.
type Outcome struct {
	Local  core.InterfaceIdentity
	Result core.ProbeResult
}

// Run resolves ifname, broadcasts the ARP request for req on its VLAN and
// waits for the matching reply. ctx is checked between stages; it cannot
// interrupt a blocking receive, use Config.Timeout for that.
func (p *Prober) Run(ctx context.Context, ifname string, req core.ProbeRequest) (core.ProbeResult, error) {
	out, err := p.Probe(ctx, ifname, req)
	return out.Result, err
}

// Probe is Run that also returns the resolved local identity.
func (p *Prober) Probe(ctx context.Context, ifname string, req core.ProbeRequest) (out Outcome, err error) {
	logger := log.GetLogger().WithFields(map[string]interface{}{
		"interface": ifname,
		"vlan":      req.VLANID,
		"target":    req.TargetIP.String(),
	})
	defer func() {
		metrics.ProbesTotal.WithLabelValues(outcome(err)).Inc()
	}()

	if err = req.Validate(); err != nil {
		return Outcome{}, err
	}
	if err = ctx.Err(); err != nil {
		return Outcome{}, err
	}

	sock, err := p.open()
	if err != nil {
		return Outcome{}, err
	}
	defer func() {
		if cerr := sock.Close(); cerr != nil {
			logger.WithError(cerr).Warn("close raw socket")
		}
	}()

	local, err := p.Resolver.Resolve(sock.FD(), ifname)
	if err != nil {
		return Outcome{}, err
	}
	logger = logger.WithFields(map[string]interface{}{
		"ifindex": local.Index,
		"mac":     local.HardwareAddr.String(),
		"ip":      local.IPv4.String(),
	})
	logger.Debug("interface resolved")

	if err = p.setup(sock, local, req); err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", core.ErrSocketSetup, err)
	}
	if err = ctx.Err(); err != nil {
		return Outcome{}, err
	}

	request := BuildRequest(local, req).Marshal()
	sent := p.clock()
	if err = sock.WriteTo(request, local.Index, core.BroadcastAddr); err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", core.ErrSend, err)
	}
	p.record(logger, request, sent)
	logger.Info("arp request sent")

	m := &Matcher{
		Local:      local,
		Request:    req,
		BufferSize: p.Config.RecvBuffer,
		Timeout:    p.Config.Timeout,
		Observer:   &observer{prober: p, log: logger},
		now:        p.now,
	}
	res, err := m.Run(sock)
	if err != nil {
		return Outcome{}, err
	}
	metrics.ReplyLatencySeconds.Observe(p.clock().Sub(sent).Seconds())
	logger.WithField("resolved_mac", res.ResolvedMAC.String()).Info("arp reply matched")
	return Outcome{Local: local, Result: res}, nil
}

func (p *Prober) open() (rawsock.Socket, error) {
	etherType := uint16(frame.EtherTypeVLAN)
	if p.Config.AllProtocols {
		etherType = rawsock.EtherTypeAll
	}
	opener := p.Opener
	if opener == nil {
		opener = rawsock.DefaultOpener
	}
	sock, err := opener(etherType)
	if err != nil {
		if errors.Is(err, core.ErrSocketCreate) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", core.ErrSocketCreate, err)
	}
	return sock, nil
}

// setup scopes the socket to the resolved interface before anything is sent.
func (p *Prober) setup(sock rawsock.Socket, local core.InterfaceIdentity, req core.ProbeRequest) error {
	if err := sock.Bind(local.Index); err != nil {
		return err
	}
	if p.Config.BPFFilter {
		prog, err := rawsock.AssembleVLANARPFilter(local.HardwareAddr, req.VLANID, true)
		if err != nil {
			return err
		}
		if err := sock.AttachFilter(prog); err != nil {
			return err
		}
	}
	if p.Config.RestoreVLANTag {
		if err := sock.EnableVLANRestore(); err != nil {
			return err
		}
	}
	if p.Config.Timeout > 0 {
		if err := sock.SetReadTimeout(p.Config.Timeout); err != nil {
			return err
		}
	}
	return nil
}

func (p *Prober) record(logger log.Logger, data []byte, ts time.Time) {
	if p.Recorder == nil {
		return
	}
	if err := p.Recorder.Record(data, ts); err != nil {
		logger.WithError(err).Warn("record frame to pcap")
	}
}

func (p *Prober) clock() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.ResultMatched
	case errors.Is(err, core.ErrProbeTimeout):
		return metrics.ResultTimeout
	default:
		return metrics.ResultError
	}
}

// observer feeds matcher events into metrics, the debug log and the recorder.
type observer struct {
	prober *Prober
	log    log.Logger
}

func (o *observer) FrameReceived(data []byte) {
	metrics.FramesReceivedTotal.Inc()
	if o.log.IsTraceEnabled() {
		o.log.Tracef("frame received, %d bytes", len(data))
	}
}

func (o *observer) FrameDiscarded(stage State, data []byte) {
	metrics.FramesDiscardedTotal.WithLabelValues(stage.String()).Inc()
	if o.log.IsDebugEnabled() {
		o.log.WithField("stage", stage.String()).Debugf("frame discarded, %d bytes", len(data))
	}
}

func (o *observer) FrameMatched(data []byte) {
	o.prober.record(o.log, data, o.prober.clock())
}
