// Package report renders a probe result for stdout.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"firestige.xyz/arprobe/internal/core"
)

// Format selects the rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json or yaml in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (must be text, json or yaml)", s)
	}
}

// Report is what a successful probe prints.
type Report struct {
	Interface string            `json:"interface" yaml:"interface"`
	LocalMAC  core.HardwareAddr `json:"local_mac" yaml:"local_mac"`
	LocalIP   netip.Addr        `json:"local_ip" yaml:"local_ip"`
	Result    core.ProbeResult  `json:"result" yaml:"result"`
}

// New pairs the local identity with the resolved answer.
func New(local core.InterfaceIdentity, res core.ProbeResult) Report {
	return Report{
		Interface: local.Name,
		LocalMAC:  local.HardwareAddr,
		LocalIP:   local.IPv4,
		Result:    res,
	}
}

// Write renders r to w in format f.
func Write(w io.Writer, f Format, r Report) error {
	switch f {
	case FormatText, "":
		return writeText(w, r)
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("report: marshal json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("report: marshal yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("report: unknown format %q", f)
	}
}

func writeText(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Interface:\t%s\n", r.Interface)
	fmt.Fprintf(tw, "Local MAC:\t%s\n", r.LocalMAC)
	fmt.Fprintf(tw, "Local IP:\t%s\n", r.LocalIP)
	fmt.Fprintf(tw, "VLAN:\t%d\n", r.Result.VLANID)
	fmt.Fprintf(tw, "Target IP:\t%s\n", r.Result.ResolvedIP)
	fmt.Fprintf(tw, "Target MAC:\t%s\n", r.Result.ResolvedMAC)
	return tw.Flush()
}
