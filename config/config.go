// Package config implements onizd's layered configuration: flags parsed
// by gopkg.in/urfave/cli.v1 take precedence over an optional TOML config
// file (github.com/naoina/toml), which takes precedence over defaults.
// Grounded on cmd/gprobe/config.go's loadConfig/tomlSettings convention.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

// Defaults mirror the CLI surface's documented defaults.
const (
	DefaultListen        = "0.0.0.0:5496"
	DefaultPingSeconds   = 24 * 60 * 60 // effectively off: one day between pings
	MinPingSeconds       = 1
	MaxPingSeconds       = 999
	DefaultMaxObjectSize = 65536
)

// ErrPingOutOfRange is returned when -p/--ping falls outside 1..=999.
var ErrPingOutOfRange = errors.New("config: ping interval must be 1-999 seconds")

// Config is the fully-resolved set of knobs a connection/server needs.
type Config struct {
	Listen        string `toml:",omitempty"`
	PingSeconds   int    `toml:",omitempty"`
	SaveFile      string `toml:",omitempty"`
	AuthFile      string `toml:",omitempty"`
	OffsetMode    bool   `toml:",omitempty"`
	Verbosity     int    `toml:",omitempty"`
	MaxObjectSize int    `toml:",omitempty"`
}

// Default returns a Config populated with the documented defaults.
func Default() Config {
	return Config{
		Listen:        DefaultListen,
		PingSeconds:   DefaultPingSeconds,
		MaxObjectSize: DefaultMaxObjectSize,
	}
}

// tomlSettings matches TOML keys to Go struct field names verbatim,
// the same normalization cmd/gprobe/config.go installs so config files
// don't need a separate key-mapping convention memorized.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// LoadFile decodes a TOML config file into cfg, overwriting only the
// fields the file sets (keys absent from the file leave cfg's existing
// defaults in place, since toml.Decode only writes keys it finds).
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		return errors.New(path + ", " + err.Error())
	}
	return err
}

// ValidatePingSeconds reports whether seconds is in the accepted CLI
// range (1..=999), matching the `-p` flag's documented bound.
func ValidatePingSeconds(seconds int) bool {
	return seconds >= MinPingSeconds && seconds <= MaxPingSeconds
}
