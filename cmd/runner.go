package cmd

import (
	"context"

	"firestige.xyz/arprobe/internal/capture"
	"firestige.xyz/arprobe/internal/config"
	"firestige.xyz/arprobe/internal/core"
	"firestige.xyz/arprobe/internal/iface"
	"firestige.xyz/arprobe/internal/log"
	"firestige.xyz/arprobe/internal/probe"
)

// ProbeRunner is the part of probe.Prober the commands need.
type ProbeRunner interface {
	Probe(ctx context.Context, ifname string, req core.ProbeRequest) (probe.Outcome, error)
}

// newRunner builds the prober described by cfg. The returned func releases
// the pcap file, if any. Tests replace it.
var newRunner = func(cfg *config.Config) (ProbeRunner, func() error, error) {
	resolver, err := iface.New(cfg.Probe.Resolver)
	if err != nil {
		return nil, nil, err
	}
	p := probe.New(cfg.Probe, resolver)
	if cfg.Capture.PcapFile == "" {
		return p, func() error { return nil }, nil
	}

	rec, err := capture.Create(cfg.Capture.PcapFile)
	if err != nil {
		return nil, nil, err
	}
	p.Recorder = rec
	release := func() error {
		log.GetLogger().WithField("file", cfg.Capture.PcapFile).Infof("pcap written, %d frame(s)", rec.Count())
		return rec.Close()
	}
	return p, release, nil
}
