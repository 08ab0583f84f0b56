package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"firestige.xyz/arprobe/internal/config"
	"firestige.xyz/arprobe/internal/core"
	"firestige.xyz/arprobe/internal/probe"
)

// MockRunner implements ProbeRunner
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Probe(ctx context.Context, ifname string, req core.ProbeRequest) (probe.Outcome, error) {
	args := m.Called(ctx, ifname, req)
	return args.Get(0).(probe.Outcome), args.Error(1)
}

var testOutcome = probe.Outcome{
	Local: core.InterfaceIdentity{
		Name:         "eth0",
		Index:        3,
		HardwareAddr: core.HardwareAddr{0x02, 0, 0, 0, 0, 0x01},
		IPv4:         netip.MustParseAddr("10.0.0.5"),
	},
	Result: core.ProbeResult{
		ResolvedMAC: core.HardwareAddr{0x02, 0, 0, 0, 0, 0x09},
		ResolvedIP:  netip.MustParseAddr("10.0.0.9"),
		VLANID:      50,
	},
}

// execute runs the root command with runner in place of a real prober.
func execute(t *testing.T, runner ProbeRunner, args ...string) (string, *config.Config, error) {
	t.Helper()
	var got *config.Config
	orig := newRunner
	newRunner = func(cfg *config.Config) (ProbeRunner, func() error, error) {
		got = cfg
		return runner, func() error { return nil }, nil
	}
	t.Cleanup(func() { newRunner = orig })

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), got, err
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		vlan    uint16
		wantErr bool
	}{
		{name: "valid", args: []string{"eth0", "50", "10.0.0.9"}, vlan: 50},
		{name: "vlan zero", args: []string{"eth0", "0", "10.0.0.9"}, vlan: 0},
		{name: "vlan max", args: []string{"eth0", "4095", "10.0.0.9"}, vlan: 4095},
		{name: "too few", args: []string{"eth0", "50"}, wantErr: true},
		{name: "too many", args: []string{"eth0", "50", "10.0.0.9", "x"}, wantErr: true},
		{name: "vlan not numeric", args: []string{"eth0", "fifty", "10.0.0.9"}, wantErr: true},
		{name: "vlan out of range", args: []string{"eth0", "4096", "10.0.0.9"}, wantErr: true},
		{name: "vlan overflows uint16", args: []string{"eth0", "70000", "10.0.0.9"}, wantErr: true},
		{name: "bad ip", args: []string{"eth0", "50", "10.0.0"}, wantErr: true},
		{name: "ipv6", args: []string{"eth0", "50", "fe80::1"}, wantErr: true},
		{name: "mapped ipv4", args: []string{"eth0", "50", "::ffff:10.0.0.9"}, wantErr: true},
		{name: "interface name too long", args: []string{"averyveryverylongname", "50", "10.0.0.9"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ifname, req, err := parseArgs(tt.args)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrArgument)
				assert.Equal(t, 2, core.ExitCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "eth0", ifname)
			assert.Equal(t, tt.vlan, req.VLANID)
			assert.Equal(t, netip.MustParseAddr("10.0.0.9"), req.TargetIP)
		})
	}
}

func TestRootCommand_Success(t *testing.T) {
	runner := new(MockRunner)
	req := core.ProbeRequest{VLANID: 50, TargetIP: netip.MustParseAddr("10.0.0.9")}
	runner.On("Probe", mock.Anything, "eth0", req).Return(testOutcome, nil)

	out, _, err := execute(t, runner, "eth0", "50", "10.0.0.9")

	require.NoError(t, err)
	assert.Contains(t, out, "Target MAC:  02:00:00:00:00:09")
	assert.Contains(t, out, "VLAN:        50")
	runner.AssertExpectations(t)
}

func TestRootCommand_JSONOutput(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Probe", mock.Anything, "eth0", mock.Anything).Return(testOutcome, nil)

	out, _, err := execute(t, runner, "eth0", "50", "10.0.0.9", "-o", "json")
	require.NoError(t, err)

	var got struct {
		Result struct {
			MAC string `json:"mac"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "02:00:00:00:00:09", got.Result.MAC)
}

func TestRootCommand_FlagsReachConfig(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Probe", mock.Anything, "eth0", mock.Anything).Return(testOutcome, nil)

	_, cfg, err := execute(t, runner, "eth0", "50", "10.0.0.9",
		"--timeout", "3s", "--bpf", "--resolver", "netlink", "--all-protocols")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "3s", cfg.Probe.Timeout.String())
	assert.True(t, cfg.Probe.BPFFilter)
	assert.True(t, cfg.Probe.AllProtocols)
	assert.Equal(t, "netlink", string(cfg.Probe.Resolver))
}

func TestRootCommand_ArgumentErrorSkipsProbe(t *testing.T) {
	runner := new(MockRunner)

	_, _, err := execute(t, runner, "eth0", "abc", "10.0.0.9")

	assert.ErrorIs(t, err, core.ErrArgument)
	runner.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything, mock.Anything)
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	runner := new(MockRunner)

	_, _, err := execute(t, runner, "eth0", "50", "10.0.0.9", "-o", "xml")

	assert.ErrorIs(t, err, core.ErrConfigInvalid)
	assert.Equal(t, 2, core.ExitCode(err))
	runner.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything, mock.Anything)
}

func TestRootCommand_ProbeFailure(t *testing.T) {
	runner := new(MockRunner)
	failure := &core.ResolveError{Stage: core.StageIndex, Interface: "eth9", Err: errors.New("no such device")}
	runner.On("Probe", mock.Anything, "eth9", mock.Anything).Return(probe.Outcome{}, failure)

	out, _, err := execute(t, runner, "eth9", "50", "10.0.0.9")

	assert.ErrorIs(t, err, core.ErrResolve)
	assert.Equal(t, 1, core.ExitCode(err))
	assert.Empty(t, out)
	runner.AssertExpectations(t)
}

func TestRootCommand_MetricsTextfile(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Probe", mock.Anything, "eth0", mock.Anything).Return(testOutcome, nil)
	path := filepath.Join(t.TempDir(), "arprobe.prom")

	_, _, err := execute(t, runner, "eth0", "50", "10.0.0.9", "--metrics-file", path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, new(MockRunner), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "arprobe "+version)
}

func TestNewRunner_PcapFile(t *testing.T) {
	cfg := config.Default()
	cfg.Capture.PcapFile = filepath.Join(t.TempDir(), "probe.pcap")

	runner, release, err := newRunner(cfg)
	require.NoError(t, err)
	require.NotNil(t, runner)
	require.NoError(t, release())

	info, err := os.Stat(cfg.Capture.PcapFile)
	require.NoError(t, err)
	assert.Equal(t, int64(24), info.Size(), "pcap file header only")
}

func TestRootCommand_HelpExplainsTagRestore(t *testing.T) {
	long := newRootCmd().Long
	assert.Contains(t, long, "--all-protocols")
	assert.Contains(t, long, "restore_vlan_tag")
}
