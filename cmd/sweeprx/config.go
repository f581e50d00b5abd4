package main

import (
	"fmt"
	"maps"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/chzchzchz/sweeprx/export"
	"github.com/chzchzchz/sweeprx/radio"
)

// Config is the optional YAML file given with --config.
type Config struct {
	// Defaults maps flag names to values used when the flag is not set
	// on the command line. Commands overrides them per subcommand.
	Defaults map[string]any            `yaml:"defaults"`
	Commands map[string]map[string]any `yaml:"commands"`

	MQTT  export.MQTTConfig `yaml:"mqtt"`
	Synth SynthConfig       `yaml:"synth"`
}

type SynthConfig struct {
	Seed          uint64          `yaml:"seed"`
	Noise         float64         `yaml:"noise"`
	OscillatorPPM float64         `yaml:"oscillatorPPM"`
	DCOffset      float64         `yaml:"dcOffset"`
	Carriers      []radio.Carrier `yaml:"carriers"`
}

func defaultConfig() *Config {
	return &Config{
		MQTT: export.MQTTConfig{
			Broker: "tcp://localhost:1883",
			Topic:  "sweeprx/windows",
		},
		Synth: SynthConfig{Seed: 1, Noise: 0.01},
	}
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// applyDefaults sets every configured flag the command line left alone.
func (c *Config) applyDefaults(cmd string, fs *pflag.FlagSet) error {
	vals := maps.Clone(c.Defaults)
	if vals == nil {
		vals = map[string]any{}
	}
	maps.Copy(vals, c.Commands[cmd])
	for name, v := range vals {
		f := fs.Lookup(name)
		if f == nil {
			// shared defaults may name flags another command owns
			if _, ok := c.Commands[cmd][name]; ok {
				return fmt.Errorf("config: %s has no flag %q", cmd, name)
			}
			continue
		}
		if f.Changed {
			continue
		}
		if err := fs.Set(name, flagValue(v)); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

func flagValue(v any) string {
	switch v := v.(type) {
	case []any:
		s := ""
		for i, e := range v {
			if i > 0 {
				s += ","
			}
			s += fmt.Sprint(e)
		}
		return s
	case float64:
		// yaml decodes 2.4e6 as a float; keep integral values integral
		if v == float64(int64(v)) {
			return fmt.Sprint(int64(v))
		}
	}
	return fmt.Sprint(v)
}
