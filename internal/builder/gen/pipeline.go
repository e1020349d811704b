package gen

import (
	"strings"

	"github.com/qobs-build/sm/internal/project"
)

// StageName identifies one phase of a Pipeline
type StageName string

const (
	StageCompile StageName = "compile"
	StageLibrary StageName = "archive_or_link_library"
	StageLink    StageName = "link_executable"
)

// Invocation is one fully formed external command
type Invocation struct {
	Stage   StageName
	Program string
	Args    []string
	// Verb and Subject make up the progress label, e.g. "Compiling src/a.cpp"
	Verb    string
	Subject string
}

// String renders the command line with single spaces between arguments
func (inv Invocation) String() string {
	var sb strings.Builder
	sb.WriteString(inv.Program)
	for _, arg := range inv.Args {
		sb.WriteByte(' ')
		sb.WriteString(arg)
	}
	return sb.String()
}

func (inv Invocation) Label() string {
	return inv.Verb + " " + inv.Subject
}

// Stage is a named group of invocations
type Stage struct {
	Name        StageName
	Invocations []Invocation
}

// Pipeline is the ordered set of commands for one build. It is produced once
// by Generator.Generate and consumed once by the execution engine.
type Pipeline struct {
	Mode project.Mode
	// Compile holds one invocation per translation unit; always empty in
	// dynamic mode
	Compile []Invocation
	// Library is the archive (static) or shared library (dynamic) build
	Library Invocation
	// Link builds the executable
	Link Invocation

	// Objects are the intermediate objects, index-aligned with Compile
	Objects    []string
	LibraryOut string
	Executable string
}

// Stages returns the three stages in execution order
func (p *Pipeline) Stages() []Stage {
	return []Stage{
		{Name: StageCompile, Invocations: p.Compile},
		{Name: StageLibrary, Invocations: []Invocation{p.Library}},
		{Name: StageLink, Invocations: []Invocation{p.Link}},
	}
}

// Invocations flattens the pipeline in execution order
func (p *Pipeline) Invocations() []Invocation {
	all := make([]Invocation, 0, len(p.Compile)+2)
	all = append(all, p.Compile...)
	return append(all, p.Library, p.Link)
}

// Commands returns the command line of every invocation in execution order
func (p *Pipeline) Commands() []string {
	invs := p.Invocations()
	cmds := make([]string, len(invs))
	for i, inv := range invs {
		cmds[i] = inv.String()
	}
	return cmds
}
