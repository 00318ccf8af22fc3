package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/mediquest/medscan/pkg/pipeline"
)

// statusPrinter shows pipeline phases on stderr. On a terminal it runs a
// spinner whose suffix tracks the current phase label; elsewhere it prints
// one line per phase.
type statusPrinter struct {
	w    io.Writer
	spin *spinner.Spinner
}

func newStatusPrinter(w io.Writer) *statusPrinter {
	p := &statusPrinter{w: w}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		p.spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	}
	return p
}

// Emit implements pipeline.StatusEmitter.
func (p *statusPrinter) Emit(ev pipeline.StatusEvent) {
	if p.spin == nil {
		fmt.Fprintf(p.w, "[%s] %s\n", ev.Phase, ev.Message)
		return
	}

	if ev.Phase.Terminal() {
		if p.spin.Active() {
			p.spin.Stop()
		}
		mark := color.New(color.FgGreen)
		if ev.Phase == pipeline.PhaseFailed {
			mark = color.New(color.FgRed)
		}
		_, _ = mark.Fprintf(p.w, "%s\n", ev.Message)
		return
	}

	p.spin.Suffix = " " + ev.Message
	if !p.spin.Active() {
		p.spin.Start()
	}
}

// Close stops the spinner if it is still running.
func (p *statusPrinter) Close() {
	if p.spin != nil && p.spin.Active() {
		p.spin.Stop()
	}
}
