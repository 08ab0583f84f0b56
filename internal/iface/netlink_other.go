//go:build !linux

package iface

import "firestige.xyz/arprobe/internal/core"

// NetlinkResolver is unavailable outside Linux.
type NetlinkResolver struct{}

// NewNetlinkResolver returns a resolver that always fails.
func NewNetlinkResolver() *NetlinkResolver {
	return &NetlinkResolver{}
}

// Resolve implements Resolver.
func (r *NetlinkResolver) Resolve(_ int, name string) (core.InterfaceIdentity, error) {
	return core.InterfaceIdentity{}, stageError(core.StageIndex, name, core.ErrUnsupportedPlatform)
}
