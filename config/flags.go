package config

import "gopkg.in/urfave/cli.v1"

// Individual onizd command-line flags, collected in Flags below.
var (
	ListenFlag = cli.StringFlag{
		Name:  "listen, l",
		Usage: "Listen address ADDR:PORT",
		Value: DefaultListen,
	}
	PingFlag = cli.IntFlag{
		Name:  "ping, p",
		Usage: "Keepalive ping interval in seconds (1-999)",
		Value: DefaultPingSeconds,
	}
	SaveFlag = cli.StringFlag{
		Name:  "save, s",
		Usage: "Snapshot file to load at startup and save at shutdown",
	}
	AuthFlag = cli.StringFlag{
		Name:  "auth, a",
		Usage: "Shared-secret file enabling challenge/response authentication",
	}
	OffsetFlag = cli.BoolFlag{
		Name:  "offset, o",
		Usage: "Apply +1/-1 y-offset to Recver/Sender named registrations and recv_* ops",
	}
	VerboseFlag = cli.BoolFlag{
		Name:  "v",
		Usage: "Verbose logging (debug level)",
	}
	VeryVerboseFlag = cli.BoolFlag{
		Name:  "vv",
		Usage: "Very verbose logging (trace level)",
	}
	ConfigFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	MaxObjectSizeFlag = cli.IntFlag{
		Name:  "max-object-size",
		Usage: "Maximum decoded byte length of a send_object payload",
		Value: DefaultMaxObjectSize,
	}
)

// Flags is the full flag set registered on the onizd cli.App.
var Flags = []cli.Flag{
	ListenFlag,
	PingFlag,
	SaveFlag,
	AuthFlag,
	OffsetFlag,
	VerboseFlag,
	VeryVerboseFlag,
	ConfigFileFlag,
	MaxObjectSizeFlag,
}

// FromContext resolves a Config from a parsed cli.Context, applying (in
// order) defaults, an optional --config TOML file, then explicit flags —
// flags always win over file values, which always win over defaults.
func FromContext(ctx *cli.Context) (Config, error) {
	cfg := Default()

	if file := ctx.GlobalString(ConfigFileFlag.Name); file != "" {
		if err := LoadFile(file, &cfg); err != nil {
			return Config{}, err
		}
	}

	if ctx.GlobalIsSet(ListenFlag.Name) {
		cfg.Listen = ctx.GlobalString(ListenFlag.Name)
	}
	if ctx.GlobalIsSet(PingFlag.Name) {
		cfg.PingSeconds = ctx.GlobalInt(PingFlag.Name)
	}
	if ctx.GlobalIsSet(SaveFlag.Name) {
		cfg.SaveFile = ctx.GlobalString(SaveFlag.Name)
	}
	if ctx.GlobalIsSet(AuthFlag.Name) {
		cfg.AuthFile = ctx.GlobalString(AuthFlag.Name)
	}
	if ctx.GlobalIsSet(OffsetFlag.Name) {
		cfg.OffsetMode = ctx.GlobalBool(OffsetFlag.Name)
	}
	if ctx.GlobalIsSet(MaxObjectSizeFlag.Name) {
		cfg.MaxObjectSize = ctx.GlobalInt(MaxObjectSizeFlag.Name)
	}
	if ctx.GlobalBool(VeryVerboseFlag.Name) {
		cfg.Verbosity = 2
	} else if ctx.GlobalBool(VerboseFlag.Name) {
		cfg.Verbosity = 1
	}

	if cfg.PingSeconds != DefaultPingSeconds && !ValidatePingSeconds(cfg.PingSeconds) {
		return Config{}, ErrPingOutOfRange
	}
	return cfg, nil
}
