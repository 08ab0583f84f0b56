//go:build !linux

package iface

import "firestige.xyz/arprobe/internal/core"

func ioctlIfreq(int, uint, *ifreq) error {
	return core.ErrUnsupportedPlatform
}
