package builder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/qobs-build/sm/internal/builder/gen"
	"github.com/qobs-build/sm/internal/engine"
	"github.com/qobs-build/sm/internal/msg"
	"github.com/qobs-build/sm/internal/project"
)

// ReportFile is the last build report, stored in the object directory
const ReportFile = "last_build.json"

var errUnsafeClean = errors.New("refusing to remove a directory outside of the project or holding sources")

// Overrides replace configuration values from the command line
type Overrides struct {
	Mode string
	Cxx  string
}

type Builder struct {
	cfg     project.Config
	basedir string
	runner  engine.Runner
	out     io.Writer
}

type Option func(*Builder)

// WithRunner replaces the process runner, mostly for tests
func WithRunner(r engine.Runner) Option {
	return func(b *Builder) { b.runner = r }
}

func WithOutput(w io.Writer) Option {
	return func(b *Builder) { b.out = w }
}

// NewBuilderInDirectory loads path/project.toml
func NewBuilderInDirectory(path string, ov Overrides, opts ...Option) (*Builder, error) {
	var err error
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	cfg, err := project.ParseConfigFromFile(filepath.Join(path, project.Filename), project.NewConfigEnv())
	if err != nil {
		return nil, err
	}
	if ov.Mode != "" {
		cfg.Target.Mode = ov.Mode
	}
	if ov.Cxx != "" {
		cfg.Compiler.Cxx = ov.Cxx
	}
	return NewBuilder(path, *cfg, opts...), nil
}

func NewBuilder(basedir string, cfg project.Config, opts ...Option) *Builder {
	b := &Builder{
		cfg:     cfg.Clone(),
		basedir: basedir,
		runner:  engine.ExecRunner{Dir: basedir},
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Config() project.Config { return b.cfg.Clone() }

func (b *Builder) Dir() string { return b.basedir }

// sources discovers the library sources; the entrance file is left out since
// it is compiled into the executable
func (b *Builder) sources() (project.SourceFileSet, error) {
	set, err := project.Discover(b.basedir, b.cfg.Target.Src, b.cfg.Target.Exclude)
	if err != nil {
		return nil, err
	}
	set = set.Without(b.cfg.Target.Entrance)
	if len(set.TranslationUnits()) == 0 {
		msg.Warnw(b.out, "no C++ sources found in %s", b.cfg.Target.Src)
	}
	return set, nil
}

func (b *Builder) generate(dryRun bool) (*gen.Pipeline, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	set, err := b.sources()
	if err != nil {
		return nil, err
	}
	g := gen.Generator{Root: b.basedir, DryRun: dryRun}
	return g.Generate(b.cfg, set)
}

// Plan generates the pipeline without creating anything on disk
func (b *Builder) Plan() (*gen.Pipeline, error) {
	return b.generate(true)
}

// Build generates the pipeline and executes it. On an aborted build both the
// report and an error matching engine.ErrAborted are returned.
func (b *Builder) Build(ctx context.Context) (*engine.Report, error) {
	p, err := b.generate(false)
	if err != nil {
		return nil, err
	}
	if err := b.purgeStale(p); err != nil {
		return nil, err
	}

	msg.Status(b.out, "", "Building", fmt.Sprintf("%s (%s, %s, c++%d, -O%d)", b.cfg.Target.Name, p.Mode, b.cfg.Compiler.Cxx, b.cfg.Compiler.Std, b.cfg.Compiler.Ol))
	report, err := engine.New(b.runner, b.out).Execute(ctx, p)
	if report != nil {
		if werr := b.saveReport(report); werr != nil {
			msg.Warnw(b.out, "failed to save build report: %v", werr)
		}
	}
	return report, err
}

// purgeStale removes objects and library artifacts of earlier builds so that
// neither the archive nor the final link can pick them up
func (b *Builder) purgeStale(p *gen.Pipeline) error {
	objs, err := filepath.Glob(filepath.Join(b.basedir, project.ObjDir, "*.o"))
	if err != nil {
		return err
	}
	libDir := project.ResolvePath(b.basedir, b.cfg.Target.Lib)
	stale := append(objs,
		filepath.Join(libDir, "lib"+b.cfg.Target.Name+".a"),
		filepath.Join(libDir, "lib"+b.cfg.Target.Name+".so"),
	)
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale artifact: %w", err)
		}
	}
	msg.Debugw(b.out, "removed %d stale objects", len(objs))
	return nil
}

func (b *Builder) reportPath() string {
	return filepath.Join(b.basedir, project.ObjDir, ReportFile)
}

// saveReport saves the build report to disk
func (b *Builder) saveReport(report *engine.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.reportPath(), data, 0o644)
}

// LastReport loads the report of the previous build, nil if there is none
func (b *Builder) LastReport() (*engine.Report, error) {
	data, err := os.ReadFile(b.reportPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var report engine.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("corrupt build report %s: %w", b.reportPath(), err)
	}
	return &report, nil
}

// BuildAndRun builds the project and runs the executable with args
func (b *Builder) BuildAndRun(ctx context.Context, args []string) error {
	if _, err := b.Build(ctx); err != nil {
		return err
	}

	exe := filepath.Join(project.ResolvePath(b.basedir, b.cfg.Target.Bin), b.cfg.Target.Name)
	msg.Status(b.out, "", "Running", strings.Join(append([]string{exe}, args...), " "))

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = b.basedir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if b.cfg.Mode() == project.ModeDynamic {
		cmd.Env = withLibraryPath(os.Environ(), project.ResolvePath(b.basedir, b.cfg.Target.Lib))
	}
	return cmd.Run()
}

// withLibraryPath prepends dir to the dynamic loader search path
func withLibraryPath(environ []string, dir string) []string {
	key := "LD_LIBRARY_PATH"
	if runtime.GOOS == "darwin" {
		key = "DYLD_LIBRARY_PATH"
	}

	out := make([]string, 0, len(environ)+1)
	value := dir
	for _, e := range environ {
		if old, ok := strings.CutPrefix(e, key+"="); ok {
			if old != "" {
				value = dir + string(os.PathListSeparator) + old
			}
			continue
		}
		out = append(out, e)
	}
	return append(out, key+"="+value)
}

// checkNoSources refuses to clean dir when it is or encloses a configured
// input, or when any C++ source lives below it
func (b *Builder) checkNoSources(dir string) error {
	for _, in := range []string{b.cfg.Target.Src, b.cfg.Target.Inc, b.cfg.Target.Entrance} {
		if in != "" && project.Contains(dir, in) {
			return fmt.Errorf("%w: %s contains %s", errUnsafeClean, dir, in)
		}
	}
	set, err := project.Discover(b.basedir, dir, nil)
	if err != nil {
		return err
	}
	if len(set) > 0 {
		return fmt.Errorf("%w: %s holds sources such as %s", errUnsafeClean, dir, set[0].Path)
	}
	return nil
}

// Clean removes the object, library and binary directories. Every directory
// is checked before anything is removed.
func (b *Builder) Clean() error {
	type target struct{ path, rel string }
	var targets []target
	for _, dir := range []string{project.ObjDir, b.cfg.Target.Lib, b.cfg.Target.Bin} {
		path := project.ResolvePath(b.basedir, dir)
		rel, err := filepath.Rel(b.basedir, path)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%w: %s", errUnsafeClean, path)
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := b.checkNoSources(dir); err != nil {
			return err
		}
		targets = append(targets, target{path, rel})
	}

	for _, t := range targets {
		if err := os.RemoveAll(t.path); err != nil {
			return err
		}
		msg.Status(b.out, "", "Removed", t.rel)
	}
	return nil
}
