package core

import (
	"errors"
	"fmt"
	"net/netip"
	"syscall"
	"testing"
)

func TestHardwareAddrString(t *testing.T) {
	mac := HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	if got := mac.String(); got != "02:00:00:00:00:01" {
		t.Errorf("expected 02:00:00:00:00:01, got %s", got)
	}
	if got := BroadcastAddr.String(); got != "ff:ff:ff:ff:ff:ff" {
		t.Errorf("expected broadcast, got %s", got)
	}
	var zero HardwareAddr
	if got := zero.String(); got != "00:00:00:00:00:00" {
		t.Errorf("expected zero address, got %s", got)
	}
}

func TestProbeRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ProbeRequest
		wantErr bool
	}{
		{"vlan 0", ProbeRequest{VLANID: 0, TargetIP: netip.MustParseAddr("10.0.0.9")}, false},
		{"vlan 4095", ProbeRequest{VLANID: 4095, TargetIP: netip.MustParseAddr("10.0.0.9")}, false},
		{"vlan 4096", ProbeRequest{VLANID: 4096, TargetIP: netip.MustParseAddr("10.0.0.9")}, true},
		{"ipv6 target", ProbeRequest{VLANID: 10, TargetIP: netip.MustParseAddr("fe80::1")}, true},
		{"zero target", ProbeRequest{VLANID: 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrArgument) {
					t.Errorf("expected ErrArgument, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestResolveError(t *testing.T) {
	err := fmt.Errorf("probe: %w", &ResolveError{Stage: StageHWAddr, Interface: "eth0", Err: syscall.ENODEV})

	if !errors.Is(err, ErrResolve) {
		t.Error("expected errors.Is(err, ErrResolve)")
	}
	if !errors.Is(err, syscall.ENODEV) {
		t.Error("expected errors.Is(err, ENODEV)")
	}
	var re *ResolveError
	if !errors.As(err, &re) {
		t.Fatal("expected errors.As to find *ResolveError")
	}
	if re.Stage != StageHWAddr {
		t.Errorf("expected stage hwaddr, got %s", re.Stage)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("x: %w", ErrArgument), 2},
		{ErrConfigInvalid, 2},
		{ErrSend, 1},
		{&ResolveError{Stage: StageIndex, Interface: "x", Err: syscall.ENODEV}, 1},
		{errors.New("other"), 1},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
