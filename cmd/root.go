// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"strconv"

	"github.com/spf13/cobra"

	"firestige.xyz/arprobe/internal/config"
	"firestige.xyz/arprobe/internal/core"
	"firestige.xyz/arprobe/internal/log"
	"firestige.xyz/arprobe/internal/metrics"
	"firestige.xyz/arprobe/internal/report"
)

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "arprobe <interface> <vlan-id> <target-ipv4>",
		Short: "Resolve an IPv4 address to a MAC address on an 802.1Q VLAN",
		Long: `arprobe sends one VLAN-tagged ARP request out of a local interface over a
raw AF_PACKET socket and waits for the matching reply. The kernel ARP cache
is neither consulted nor updated. Requires CAP_NET_RAW.

By default arprobe waits for a reply forever; use --timeout to bound the wait.

Many kernels strip the 802.1Q tag in software before frames reach a packet
socket, so a socket opened for 0x8100 may never see the reply. Use
--all-protocols in that case: restore_vlan_tag (on by default) then puts the
tag back from PACKET_AUXDATA before the reply is matched.

Examples:
  arprobe eth0 50 10.0.0.9                  # who has 10.0.0.9 on VLAN 50
  arprobe eth0 50 10.0.0.9 -o json          # print the result as JSON
  arprobe eth0 50 10.0.0.9 --timeout 2s     # give up after two seconds
  arprobe eth0 50 10.0.0.9 --pcap probe.pcap`,
		Args: func(cmd *cobra.Command, args []string) error {
			_, _, err := parseArgs(args)
			return err
		},
		Version:       version,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Arguments are valid past this point; runtime errors need no usage text.
			cmd.SilenceUsage = true

			ifname, req, err := parseArgs(args)
			if err != nil {
				return err
			}
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			if err := log.Init(cfg.Log); err != nil {
				return fmt.Errorf("%w: %w", core.ErrConfigInvalid, err)
			}
			format, err := report.ParseFormat(cfg.Output.Format)
			if err != nil {
				return fmt.Errorf("%w: %w", core.ErrConfigInvalid, err)
			}

			if cfg.Metrics.Textfile != "" {
				defer func() {
					if werr := metrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
						log.GetLogger().WithError(werr).Warn("metrics textfile not written")
					}
				}()
			}

			runner, release, err := newRunner(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := release(); cerr != nil {
					log.GetLogger().WithError(cerr).Warn("close pcap file")
				}
			}()

			return runProbe(cmd.Context(), runner, ifname, req, format, cmd.OutOrStdout())
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")

	flags := root.Flags()
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Duration("timeout", 0, "give up when no reply arrives in time (0 waits forever)")
	flags.Bool("bpf", false, "attach a kernel BPF prefilter to the raw socket")
	flags.String("resolver", "ioctl", "interface lookup backend: ioctl or netlink")
	flags.Bool("all-protocols", false, "open the socket for all ethertypes instead of 802.1Q only")
	flags.StringP("output", "o", "text", "output format: text, json, yaml")
	flags.String("pcap", "", "write the request and reply to this pcap file")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile on exit")

	root.AddCommand(newMBRCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the command line. The caller maps the error to an exit code.
func Execute() error {
	return newRootCmd().Execute()
}

// parseArgs validates <interface> <vlan-id> <target-ipv4>.
func parseArgs(args []string) (string, core.ProbeRequest, error) {
	if len(args) != 3 {
		return "", core.ProbeRequest{}, fmt.Errorf("%w: expected <interface> <vlan-id> <target-ipv4>, got %d argument(s)", core.ErrArgument, len(args))
	}

	ifname := args[0]
	if ifname == "" || len(ifname) >= core.IfNameSize {
		return "", core.ProbeRequest{}, fmt.Errorf("%w: interface name %q must be 1-%d bytes", core.ErrArgument, ifname, core.IfNameSize-1)
	}

	vlan, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return "", core.ProbeRequest{}, fmt.Errorf("%w: vlan id %q is not a number in 0-%d", core.ErrArgument, args[1], core.MaxVLANID)
	}

	ip, err := netip.ParseAddr(args[2])
	if err != nil {
		return "", core.ProbeRequest{}, fmt.Errorf("%w: %q is not an IPv4 address", core.ErrArgument, args[2])
	}

	req := core.ProbeRequest{VLANID: uint16(vlan), TargetIP: ip}
	if err := req.Validate(); err != nil {
		return "", core.ProbeRequest{}, err
	}
	return ifname, req, nil
}

func runProbe(ctx context.Context, runner ProbeRunner, ifname string, req core.ProbeRequest, format report.Format, w io.Writer) error {
	out, err := runner.Probe(ctx, ifname, req)
	if err != nil {
		return err
	}
	return report.Write(w, format, report.New(out.Local, out.Result))
}
