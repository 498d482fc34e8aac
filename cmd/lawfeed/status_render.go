package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusKinds = [...]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const ansiReset = "\x1b[0m"

const statusLabelWidth = 20

// statusPrinter writes aligned "label: [KIND] message" lines, coloured only
// when the destination is a terminal.
type statusPrinter struct {
	out      io.Writer
	colorize bool
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out, colorize: shouldColorize(out)}
}

func (p *statusPrinter) header(title string) {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	fmt.Fprintln(p.out, p.paint(statusInfo, line))
	fmt.Fprintln(p.out, p.paint(statusInfo, strings.Repeat("-", len(line))))
}

func (p *statusPrinter) line(label string, kind statusKind, message string) {
	fmt.Fprintln(p.out, p.paint(kind, formatStatusLine(label, kind, message)))
}

// check prints a yes/no line that is OK when ok holds and an error otherwise.
func (p *statusPrinter) check(label string, ok bool) {
	kind := statusError
	if ok {
		kind = statusOK
	}
	p.line(label, kind, yesNo(ok))
}

func (p *statusPrinter) paint(kind statusKind, s string) string {
	if !p.colorize {
		return s
	}
	return statusKinds[kind].color + s + ansiReset
}

func formatStatusLine(label string, kind statusKind, message string) string {
	status := "[" + statusKinds[kind].label + "]"
	if message != "" {
		status += " " + message
	}
	return fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", status)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
