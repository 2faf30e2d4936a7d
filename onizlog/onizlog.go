// Package onizlog implements a small leveled, colorized logger used
// throughout onizd, in the call-convention of the go-ethereum lineage's
// log package: Logger.Info("message", "key", value, "key2", value2, ...).
// This package's shape is reconstructed from the call sites scattered
// across probe/ and cmd/, which all log this way against a log.Logger
// built elsewhere in that lineage (see DESIGN.md).
package onizlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level is a logging severity, ordered from least to most verbose.
type Level int

const (
	LvlCrit Level = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

var levelNames = map[Level]string{
	LvlCrit:  "CRIT",
	LvlError: "ERROR",
	LvlWarn:  "WARN",
	LvlInfo:  "INFO",
	LvlDebug: "DEBUG",
	LvlTrace: "TRACE",
}

var levelColors = map[Level]*color.Color{
	LvlCrit:  color.New(color.FgMagenta, color.Bold),
	LvlError: color.New(color.FgRed),
	LvlWarn:  color.New(color.FgYellow),
	LvlInfo:  color.New(color.FgGreen),
	LvlDebug: color.New(color.FgCyan),
	LvlTrace: color.New(color.FgWhite),
}

// Logger is a leveled logger bound to a set of persistent key/value
// context fields (With), matching the go-ethereum lineage's Logger
// interface shape.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
	With(ctx ...interface{}) Logger
}

type logger struct {
	mu    *sync.Mutex
	out   io.Writer
	color bool
	level Level
	ctx   []interface{}
}

// New returns a Logger writing to w at the given verbosity level. Color
// is enabled automatically when w is a terminal (mattn/go-isatty),
// wrapped through mattn/go-colorable so ANSI codes render correctly on
// Windows consoles as well.
func New(w io.Writer, level Level) Logger {
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		if useColor {
			w = colorable.NewColorable(f)
		}
	}
	return &logger{mu: &sync.Mutex{}, out: w, color: useColor, level: level}
}

func (l *logger) With(ctx ...interface{}) Logger {
	merged := make([]interface{}, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	merged = append(merged, ctx...)
	return &logger{mu: l.mu, out: l.out, color: l.color, level: l.level, ctx: merged}
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.log(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.log(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.log(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.log(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.log(LvlError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...interface{})  { l.log(LvlCrit, msg, ctx) }

func (l *logger) log(lvl Level, msg string, ctx []interface{}) {
	if lvl > l.level {
		return
	}
	all := make([]interface{}, 0, len(l.ctx)+len(ctx))
	all = append(all, l.ctx...)
	all = append(all, ctx...)

	ts := time.Now().Format("2006-01-02T15:04:05-0700")
	tag := levelNames[lvl]
	if l.color {
		tag = levelColors[lvl].Sprint(tag)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "[%s] %-5s %s", ts, tag, msg)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(l.out, " %v=%v", all[i], all[i+1])
	}
	fmt.Fprintln(l.out)
}
