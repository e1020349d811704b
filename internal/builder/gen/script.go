package gen

import "strings"

// Script renders the pipeline as a POSIX shell script that stops on the
// first failing command
func (p *Pipeline) Script() string {
	var sb strings.Builder

	writeln(&sb, "#!/bin/sh")
	writeln(&sb, "# mode: ", p.Mode.String())
	writeln(&sb, "set -e")

	for _, stage := range p.Stages() {
		writeln(&sb)
		writeln(&sb, "# ", string(stage.Name))
		for _, inv := range stage.Invocations {
			write(&sb, shellQuote(inv.Program))
			for _, arg := range inv.Args {
				write(&sb, " ", shellQuote(arg))
			}
			writeln(&sb)
		}
	}

	return sb.String()
}
