// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"firestige.xyz/arprobe/internal/core"
	"firestige.xyz/arprobe/internal/frame"
	"firestige.xyz/arprobe/internal/iface"
)

// Config represents the top-level configuration.
// Maps to the `arprobe:` root key in YAML.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Probe   ProbeConfig   `mapstructure:"probe"`
	Output  OutputConfig  `mapstructure:"output"`
	Capture CaptureConfig `mapstructure:"capture"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level      string           `mapstructure:"level"`       // debug / info / warn / error
	Format     string           `mapstructure:"format"`      // text / json
	Pattern    string           `mapstructure:"pattern"`     // text format only
	TimeFormat string           `mapstructure:"time_format"` // Go reference layout
	Outputs    LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains log destinations besides stderr.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Probe ───

// ProbeConfig tunes the raw socket and reply wait.
type ProbeConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`          // 0 = wait forever
	RecvBuffer     int           `mapstructure:"recv_buffer"`      // bytes per received frame
	BPFFilter      bool          `mapstructure:"bpf_filter"`       // kernel prefilter
	RestoreVLANTag bool          `mapstructure:"restore_vlan_tag"` // re-insert offloaded tags
	AllProtocols   bool          `mapstructure:"all_protocols"`    // ETH_P_ALL instead of 0x8100
	Resolver       iface.Kind    `mapstructure:"resolver"`         // ioctl / netlink
}

// ─── Output ───

// OutputConfig selects how the probe result is printed.
type OutputConfig struct {
	Format string `mapstructure:"format"` // text / json / yaml
}

// CaptureConfig enables recording of the exchanged frames.
type CaptureConfig struct {
	PcapFile string `mapstructure:"pcap_file"`
}

// MetricsConfig enables writing probe counters in Prometheus text format.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `arprobe: ...`.
type configRoot struct {
	Arprobe Config `mapstructure:"arprobe"`
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":     "arprobe.log.level",
	"timeout":       "arprobe.probe.timeout",
	"bpf":           "arprobe.probe.bpf_filter",
	"resolver":      "arprobe.probe.resolver",
	"all-protocols": "arprobe.probe.all_protocols",
	"output":        "arprobe.output.format",
	"pcap":          "arprobe.capture.pcap_file",
	"metrics-file":  "arprobe.metrics.textfile",
}

// Load builds the configuration from defaults, an optional YAML file, the
// environment (ARPROBE_ prefix, e.g. ARPROBE_PROBE_TIMEOUT) and flags, in
// increasing order of precedence. path may be empty.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read config file: %w", core.ErrConfigInvalid, err)
		}
	}

	// The `arprobe.` key prefix maps to `ARPROBE_` through the key replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var root configRoot
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&root, hooks); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %w", core.ErrConfigInvalid, err)
	}
	cfg := root.Arprobe

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfigInvalid, err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file, env or flag is given.
func Default() *Config {
	cfg, err := Load("", nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

// setDefaults sets default values for configuration.
// All keys use "arprobe." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("arprobe.log.level", "info")
	v.SetDefault("arprobe.log.format", "text")
	v.SetDefault("arprobe.log.pattern", "%time [%level] %field %msg\n")
	v.SetDefault("arprobe.log.time_format", "2006-01-02 15:04:05.000")
	v.SetDefault("arprobe.log.outputs.file.enabled", false)
	v.SetDefault("arprobe.log.outputs.file.path", "/var/log/arprobe/arprobe.log")
	v.SetDefault("arprobe.log.outputs.file.rotation.max_size_mb", 10)
	v.SetDefault("arprobe.log.outputs.file.rotation.max_age_days", 7)
	v.SetDefault("arprobe.log.outputs.file.rotation.max_backups", 3)
	v.SetDefault("arprobe.log.outputs.file.rotation.compress", true)

	// Probe defaults: block forever like a plain recvfrom loop
	v.SetDefault("arprobe.probe.timeout", "0s")
	v.SetDefault("arprobe.probe.recv_buffer", 1514)
	v.SetDefault("arprobe.probe.bpf_filter", false)
	v.SetDefault("arprobe.probe.restore_vlan_tag", true)
	v.SetDefault("arprobe.probe.all_protocols", false)
	v.SetDefault("arprobe.probe.resolver", string(iface.KindIoctl))

	v.SetDefault("arprobe.output.format", "text")
	v.SetDefault("arprobe.capture.pcap_file", "")
	v.SetDefault("arprobe.metrics.textfile", "")
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("log.outputs.file.path is required when file output is enabled")
	}

	// ── Probe validation ──
	if cfg.Probe.Timeout < 0 {
		return fmt.Errorf("invalid probe.timeout: %s (must be >= 0)", cfg.Probe.Timeout)
	}
	if cfg.Probe.RecvBuffer < frame.Len || cfg.Probe.RecvBuffer > 65535 {
		return fmt.Errorf("invalid probe.recv_buffer: %d (must be %d-65535)", cfg.Probe.RecvBuffer, frame.Len)
	}
	if cfg.Probe.Resolver == "" {
		cfg.Probe.Resolver = iface.KindIoctl
	}

	// ── Output validation ──
	switch cfg.Output.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("invalid output.format: %s (must be text/json/yaml)", cfg.Output.Format)
	}

	return nil
}
