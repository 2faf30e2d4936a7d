// Command onizkey generates a fresh random shared-secret file for use
// as onizd's -a/--auth argument, in the spirit of cmd/probekey's
// key-generation utility.
package main

import (
	"crypto/rand"
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"
)

var (
	outFlag = cli.StringFlag{
		Name:  "out, o",
		Usage: "File to write the generated secret to",
	}
	sizeFlag = cli.IntFlag{
		Name:  "bytes, n",
		Usage: "Number of random bytes to generate",
		Value: 65536,
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "onizkey"
	app.Usage = "generate a random shared-secret file for onizd's challenge/response auth"
	app.Flags = []cli.Flag{outFlag, sizeFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	out := ctx.String(outFlag.Name)
	if out == "" {
		return fmt.Errorf("onizkey: -out is required")
	}
	n := ctx.Int(sizeFlag.Name)
	if n <= 0 {
		return fmt.Errorf("onizkey: -bytes must be positive")
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("onizkey: generating random bytes: %w", err)
	}
	if err := os.WriteFile(out, buf, 0o600); err != nil {
		return fmt.Errorf("onizkey: writing %s: %w", out, err)
	}
	fmt.Printf("wrote %d random bytes to %s\n", n, out)
	return nil
}
