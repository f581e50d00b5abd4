package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/chzchzchz/sweeprx/sweep"
)

const testConfig = `
defaults:
  sample-rate: 2.048e6
  ppm: -12
  settle: 80ms
  output: [csv, sqlite]
commands:
  scan:
    prominence: 25
mqtt:
  broker: tcp://broker:1883
  topic: lab/sweeps
synth:
  seed: 7
  noise: 0.02
  oscillatorPPM: 15
  dcOffset: 0.25
  carriers:
    - hz: 100050000
      amplitude: 0.5
`

func writeConfig(t *testing.T, data string) string {
	path := filepath.Join(t.TempDir(), "sweeprx.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Uint64("sample-rate", 2400000, "")
	fs.Int("ppm", 0, "")
	fs.Duration("settle", 50*time.Millisecond, "")
	fs.StringSlice("output", []string{"text"}, "")
	fs.Float64("prominence", 30, "")
	return fs
}

func TestLoadConfig(t *testing.T) {
	c, err := loadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatal(err)
	}
	if c.MQTT.Broker != "tcp://broker:1883" || c.MQTT.Topic != "lab/sweeps" {
		t.Errorf("unexpected mqtt config %+v", c.MQTT)
	}
	if c.Synth.Seed != 7 || c.Synth.Noise != 0.02 || c.Synth.OscillatorPPM != 15 || c.Synth.DCOffset != 0.25 {
		t.Errorf("unexpected synth config %+v", c.Synth)
	}
	if len(c.Synth.Carriers) != 1 || c.Synth.Carriers[0].Hz != 100050000 {
		t.Errorf("unexpected carriers %+v", c.Synth.Carriers)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	c, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if c.MQTT.Broker == "" || c.Synth.Seed == 0 {
		t.Fatalf("expected built in defaults, got %+v", c)
	}
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := loadConfig(writeConfig(t, "defaults: [")); err == nil {
		t.Fatal("expected error for bad yaml")
	}
}

func TestApplyDefaults(t *testing.T) {
	c, err := loadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatal(err)
	}
	fs := testFlags()
	if err := fs.Parse([]string{"--ppm", "3"}); err != nil {
		t.Fatal(err)
	}
	if err := c.applyDefaults("scan", fs); err != nil {
		t.Fatal(err)
	}
	if v, _ := fs.GetUint64("sample-rate"); v != 2048000 {
		t.Errorf("expected sample rate from config, got %d", v)
	}
	if v, _ := fs.GetInt("ppm"); v != 3 {
		t.Errorf("command line ppm should win, got %d", v)
	}
	if v, _ := fs.GetDuration("settle"); v != 80*time.Millisecond {
		t.Errorf("expected settle 80ms, got %v", v)
	}
	if v, _ := fs.GetStringSlice("output"); len(v) != 2 || v[0] != "csv" || v[1] != "sqlite" {
		t.Errorf("expected outputs csv,sqlite, got %v", v)
	}
	if v, _ := fs.GetFloat64("prominence"); v != 25 {
		t.Errorf("expected scan prominence 25, got %v", v)
	}
}

func TestApplyDefaultsUnknownFlag(t *testing.T) {
	c := &Config{Defaults: map[string]any{"prominence": 10}}
	fs := pflag.NewFlagSet("peak", pflag.ContinueOnError)
	// shared defaults may belong to another command
	if err := c.applyDefaults("peak", fs); err != nil {
		t.Fatal(err)
	}
	c = &Config{Commands: map[string]map[string]any{"peak": {"prominence": 10}}}
	if err := c.applyDefaults("peak", fs); err == nil {
		t.Fatal("expected error for a command default naming no flag")
	}
	c = &Config{Defaults: map[string]any{"ppm": "many"}}
	if err := c.applyDefaults("peak", testFlags()); err == nil {
		t.Fatal("expected error for a bad value")
	}
}

func TestParseHz(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
		ok   bool
	}{
		{"88000000", 88000000, true},
		{"88M", 88000000, true},
		{"162.55M", 162550000, true},
		{"1.2GHz", 1200000000, true},
		{"433.92 MHz", 433920000, true},
		{"100k", 100000, true},
		{"5 dB", 0, false},
		{"fast", 0, false},
		{"-3M", 0, false},
	}
	for _, tt := range tests {
		got, err := parseHz(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("parseHz(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseHz(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSweepMode(t *testing.T) {
	defer func() { disjoint, overlap = false, false }()
	if m, err := sweepMode(sweep.Overlap); err != nil || m != sweep.Overlap {
		t.Fatalf("expected default mode, got %v %v", m, err)
	}
	disjoint = true
	if m, _ := sweepMode(sweep.Overlap); m != sweep.Disjoint {
		t.Fatalf("expected disjoint override, got %v", m)
	}
	overlap = true
	if _, err := sweepMode(sweep.Overlap); err == nil {
		t.Fatal("expected error for both overrides")
	}
}

func TestPPMRequest(t *testing.T) {
	ppmFlags = sweepFlags{binSize: 10, bandwidth: 200000, sampleTime: 1, alpha: 0.3}
	sampleRate, ppmMargin = 2400000, 20000
	req := ppmRequest([]uint64{162550000, 162400000, 162475000})
	if req.Start != 162380000 || req.Stop != 162570000 {
		t.Fatalf("unexpected range %d-%d", req.Start, req.Stop)
	}
	if req.Mode != sweep.Disjoint || req.CaptureDuration != time.Second {
		t.Fatalf("unexpected request %+v", req)
	}
	if err := req.Validate(); err != nil {
		t.Fatal(err)
	}
}
