//go:build linux

package iface

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func ioctlIfreq(fd int, req uint, ifr *ifreq) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(unsafe.Pointer(ifr)))
	if errno != 0 {
		return errno
	}
	return nil
}
