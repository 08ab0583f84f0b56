// Package iface looks up the index, MAC and IPv4 address of a local interface.
package iface

import (
	"fmt"

	"firestige.xyz/arprobe/internal/core"
)

// Resolver returns the identity of a named interface. fd is the raw socket
// the lookup may be issued on; implementations that do not need it ignore it.
type Resolver interface {
	Resolve(fd int, name string) (core.InterfaceIdentity, error)
}

// Kind selects a Resolver implementation.
type Kind string

const (
	KindIoctl   Kind = "ioctl"
	KindNetlink Kind = "netlink"
)

// UnmarshalText lets config decode the resolver name.
func (k *Kind) UnmarshalText(text []byte) error {
	switch Kind(text) {
	case KindIoctl, KindNetlink:
		*k = Kind(text)
		return nil
	case "":
		*k = KindIoctl
		return nil
	default:
		return fmt.Errorf("unknown resolver %q (must be ioctl or netlink)", text)
	}
}

// New returns the Resolver for kind.
func New(kind Kind) (Resolver, error) {
	switch kind {
	case KindIoctl, "":
		return NewIoctlResolver(), nil
	case KindNetlink:
		return NewNetlinkResolver(), nil
	default:
		return nil, fmt.Errorf("%w: unknown resolver %q", core.ErrConfigInvalid, kind)
	}
}

func checkName(name string) error {
	if name == "" || len(name) >= core.IfNameSize {
		return fmt.Errorf("interface name must be 1-%d bytes", core.IfNameSize-1)
	}
	return nil
}

func stageError(stage core.ResolveStage, name string, err error) error {
	return &core.ResolveError{Stage: stage, Interface: name, Err: err}
}
