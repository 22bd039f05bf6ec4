package main

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/state"
)

// provisionFile is the YAML form of a board config. Omitted values keep the
// factory defaults.
//
//	wifi:
//	  ssid: office
//	  passphrase: secret
//	server:
//	  host: 192.168.1.117
//	  port: 9999
//	  path: /gp/dbd.php
//	timing:
//	  refresh: 60s
//	  rotate: 2s
//	display:
//	  intensity: 8
//	  loading_lights: true
type provisionFile struct {
	WiFi    wifiSection    `yaml:"wifi"`
	Server  serverSection  `yaml:"server"`
	Timing  timingSection  `yaml:"timing"`
	Display displaySection `yaml:"display"`
}

type wifiSection struct {
	SSID       string `yaml:"ssid"`
	Passphrase string `yaml:"passphrase,omitempty"`
}

type serverSection struct {
	Host string `yaml:"host"`
	Port uint16 `yaml:"port"`
	Path string `yaml:"path"`
}

type timingSection struct {
	Refresh        time.Duration `yaml:"refresh"`
	Rotate         time.Duration `yaml:"rotate"`
	ReceiveTimeout time.Duration `yaml:"receive_timeout"`
	RestartDelay   time.Duration `yaml:"restart_delay"`
}

type displaySection struct {
	Intensity     *uint8 `yaml:"intensity"`
	MergePartial  bool   `yaml:"merge_partial"`
	LoadingLights bool   `yaml:"loading_lights"`
}

// loadProvision decodes a provisioning file. Unknown keys are an error so a
// typo cannot silently fall back to a default.
func loadProvision(r io.Reader) (*provisionFile, error) {
	var p provisionFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse provisioning file: %w", err)
	}
	return &p, nil
}

// toConfig builds a validated config from the file on top of the defaults.
func (p *provisionFile) toConfig() (config.Config, error) {
	cfg := config.Default()
	if len(p.WiFi.SSID) >= len(cfg.SSID) {
		return cfg, fmt.Errorf("wifi.ssid longer than %d bytes", len(cfg.SSID)-1)
	}
	if len(p.WiFi.Passphrase) >= len(cfg.Passphrase) {
		return cfg, fmt.Errorf("wifi.passphrase longer than %d bytes", len(cfg.Passphrase)-1)
	}
	if len(p.Server.Host) >= len(cfg.Host) || len(p.Server.Path) >= len(cfg.Path) {
		return cfg, fmt.Errorf("server.host or server.path too long")
	}

	cfg.SetSSID(p.WiFi.SSID)
	cfg.SetPassphrase(p.WiFi.Passphrase)
	if p.Server.Host != "" {
		cfg.SetHost(p.Server.Host)
	}
	if p.Server.Port != 0 {
		cfg.Port = p.Server.Port
	}
	if p.Server.Path != "" {
		cfg.SetPath(p.Server.Path)
	}

	setMs(&cfg.RefreshMs, p.Timing.Refresh)
	setMs(&cfg.RotateMs, p.Timing.Rotate)
	setMs(&cfg.ReceiveTimeoutMs, p.Timing.ReceiveTimeout)
	setMs(&cfg.RestartDelayMs, p.Timing.RestartDelay)

	if p.Display.Intensity != nil {
		cfg.Intensity = *p.Display.Intensity
	}
	if p.Display.MergePartial {
		cfg.Flags |= config.FlagMergePartial
	}
	if p.Display.LoadingLights {
		cfg.Flags |= config.FlagLoadingLights
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setMs(dst *uint32, d time.Duration) {
	if d > 0 {
		*dst = uint32(d / time.Millisecond)
	}
}

// fromConfig is the inverse of toConfig, used to print a board's config.
func fromConfig(cfg *config.Config) *provisionFile {
	intensity := cfg.Intensity
	return &provisionFile{
		WiFi: wifiSection{
			SSID:       cfg.GetSSID(),
			Passphrase: cfg.GetPassphrase(),
		},
		Server: serverSection{
			Host: cfg.GetHost(),
			Port: cfg.Port,
			Path: cfg.GetPath(),
		},
		Timing: timingSection{
			Refresh:        cfg.Refresh(),
			Rotate:         cfg.Rotate(),
			ReceiveTimeout: cfg.ReceiveTimeout(),
			RestartDelay:   cfg.RestartDelay(),
		},
		Display: displaySection{
			Intensity:     &intensity,
			MergePartial:  cfg.Has(config.FlagMergePartial),
			LoadingLights: cfg.Has(config.FlagLoadingLights),
		},
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// statusReport is the YAML form of a board status.
type statusReport struct {
	Fields    map[string]int `yaml:"fields"`
	FetchedAt string         `yaml:"fetched_at"`
	View      uint8          `yaml:"view"`
	Night     bool           `yaml:"night"`
	Last      string         `yaml:"last"`
	Fetches   uint32         `yaml:"fetches"`
	Failures  uint32         `yaml:"failures"`
}

func newStatusReport(st *state.Status) statusReport {
	r := statusReport{
		Fields:    make(map[string]int, state.FieldCount),
		FetchedAt: "never",
		View:      st.View,
		Night:     st.Night,
		Last:      st.Last.String(),
		Fetches:   st.Fetches,
		Failures:  st.Failures,
	}
	for f := state.Field(0); f < state.FieldCount; f++ {
		r.Fields[f.String()] = st.State.Get(f)
	}
	if st.State.Fetched() {
		r.FetchedAt = st.State.FetchedAt.UTC().Format(time.RFC3339)
	}
	return r
}
