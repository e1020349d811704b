package msg

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Verbose enables Debug output
var Verbose bool

type prefix func(format string, a ...any) string

func line(w io.Writer, tag prefix, name, format string, a ...any) {
	fmt.Fprint(w, tag("%s", name))
	fmt.Fprint(w, ": ")
	fmt.Fprintf(w, format, a...)
	fmt.Fprint(w, "\n")
}

func Error(format string, a ...any) { Errorw(os.Stdout, format, a...) }
func Warn(format string, a ...any)  { Warnw(os.Stdout, format, a...) }
func Info(format string, a ...any)  { Infow(os.Stdout, format, a...) }
func Debug(format string, a ...any) { Debugw(os.Stdout, format, a...) }

func Fatal(format string, a ...any) {
	line(os.Stdout, color.RedString, "fatal", format, a...)
	os.Exit(1)
}

func Errorw(w io.Writer, format string, a ...any) {
	line(w, color.HiRedString, "error", format, a...)
}

func Warnw(w io.Writer, format string, a ...any) {
	line(w, color.YellowString, "warn", format, a...)
}

func Infow(w io.Writer, format string, a ...any) {
	line(w, color.HiGreenString, "info", format, a...)
}

func Debugw(w io.Writer, format string, a ...any) {
	if !Verbose {
		return
	}
	line(w, color.HiBlackString, "debug", format, a...)
}

// Status prints a progress line such as "[1/2] Compiling src/a.cpp". The
// progress part is left out when empty.
func Status(w io.Writer, progress, verb, subject string) {
	if progress != "" {
		fmt.Fprint(w, color.HiBlackString("%s", progress), " ")
	}
	fmt.Fprintf(w, "%s %s\n", color.New(color.FgHiGreen, color.Bold).Sprint(verb), subject)
}

// IndentWriter prefixes every line written through it with Indent
type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	buf := make([]byte, 0, len(p)+len(w.Indent))
	for _, c := range p {
		if !w.didIndent {
			buf = append(buf, w.Indent...)
			w.didIndent = true
		}
		buf = append(buf, c)
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	if _, err := w.W.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Block writes captured process output indented under a status line, painted
// with paint. A missing trailing newline is added.
func Block(w io.Writer, data []byte, paint func(format string, a ...any) string) {
	if len(data) == 0 {
		return
	}
	text := string(data)
	if text[len(text)-1] != '\n' {
		text += "\n"
	}
	iw := &IndentWriter{Indent: "    ", W: w}
	if paint != nil {
		text = paint("%s", text)
	}
	io.WriteString(iw, text)
}
