// Command onizd runs the rendezvous server between game-world instances:
// energy, material-packet, and opaque-object exchange plus endpoint
// registration over a line-delimited JSON TCP protocol. Grounded on
// cmd/gprobe/main.go's cli.App wiring convention.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/solra/onizd/config"
	"github.com/solra/onizd/imap"
	"github.com/solra/onizd/onizlog"
	"github.com/solra/onizd/server"
)

var app = cli.NewApp()

func init() {
	app.Name = "onizd"
	app.Usage = "rendezvous server for inter-world resource and endpoint exchange"
	app.Flags = config.Flags
	app.Action = run
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	level := onizlog.LvlInfo
	switch cfg.Verbosity {
	case 1:
		level = onizlog.LvlDebug
	case 2:
		level = onizlog.LvlTrace
	}
	lg := onizlog.New(os.Stderr, level)

	m := imap.New()
	srv := server.New(&cfg, m, lg)

	runCtx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		lg.Info("shutdown signal received")
		cancel()
	}()

	if cfg.Verbosity > 0 {
		printBanner(cfg)
	}

	err = srv.Run(runCtx)

	if cfg.Verbosity > 0 {
		printStats(m)
	}
	return err
}

func printBanner(cfg config.Config) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Setting", "Value"})
	table.Append([]string{"Listen", cfg.Listen})
	table.Append([]string{"Ping interval (s)", fmt.Sprint(cfg.PingSeconds)})
	table.Append([]string{"Save file", orNone(cfg.SaveFile)})
	table.Append([]string{"Auth file", orNone(cfg.AuthFile)})
	table.Append([]string{"Offset mode", fmt.Sprint(cfg.OffsetMode)})
	table.Append([]string{"Max object size", fmt.Sprint(cfg.MaxObjectSize)})
	table.Render()
}

func printStats(m *imap.Map) {
	s := m.Stats()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Tiles", fmt.Sprint(s.Tiles)})
	table.Append([]string{"Total energy", fmt.Sprint(s.TotalEnergy)})
	table.Append([]string{"Queued packets", fmt.Sprint(s.QueuedPackets)})
	table.Append([]string{"Queued objects", fmt.Sprint(s.QueuedObjects)})
	table.Append([]string{"Registrations", fmt.Sprint(s.Registrations)})
	table.Render()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
