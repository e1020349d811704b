package gen

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/qobs-build/sm/internal/project"
)

var ErrOutputPathConflict = errors.New("output path is occupied by a regular file")

const archiver = "ar"

// Generator maps a configuration and its discovered sources to a Pipeline.
// Apart from creating the output directories under Root it performs no I/O.
type Generator struct {
	Root string
	// DryRun checks the output directories for conflicts without creating them
	DryRun bool
}

// layout holds the output paths of one project, relative to its root
type layout struct {
	objDir  string
	libDir  string
	binDir  string
	incDir  string
	name    string
	archive string
	shared  string
	exe     string
}

func newLayout(cfg project.Config) layout {
	l := layout{
		objDir: project.ObjDir,
		libDir: filepath.Clean(cfg.Target.Lib),
		binDir: filepath.Clean(cfg.Target.Bin),
		incDir: filepath.Clean(cfg.Target.Inc),
		name:   cfg.Target.Name,
	}
	l.archive = filepath.Join(l.libDir, "lib"+l.name+".a")
	l.shared = filepath.Join(l.libDir, "lib"+l.name+".so")
	l.exe = filepath.Join(l.binDir, l.name)
	return l
}

// objectPath names the object of the i-th translation unit
func (l layout) objectPath(i int) string {
	return filepath.Join(l.objDir, strconv.Itoa(i)+".o")
}

// Generate validates cfg, prepares the output directories and builds the
// pipeline. Nothing is created when cfg is invalid.
func (g Generator) Generate(cfg project.Config, sources project.SourceFileSet) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := newLayout(cfg)
	if err := g.prepareOutputs(l); err != nil {
		return nil, err
	}

	units := sources.TranslationUnits()
	switch mode := cfg.Mode(); mode {
	case project.ModeStatic:
		return staticPipeline(cfg, l, units), nil
	case project.ModeDynamic:
		return dynamicPipeline(cfg, l, units), nil
	default:
		return nil, fmt.Errorf("%w %q", project.ErrInvalidMode, cfg.Target.Mode)
	}
}

// prepareOutputs checks every output directory before creating any of them,
// so a conflict leaves the tree untouched
func (g Generator) prepareOutputs(l layout) error {
	var missing []string
	for _, dir := range []string{l.objDir, l.libDir, l.binDir} {
		path := project.ResolvePath(g.Root, dir)
		exists, err := checkDir(path)
		if err != nil {
			return err
		}
		if !exists {
			missing = append(missing, path)
		}
	}

	if g.DryRun {
		return nil
	}
	for _, path := range missing {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", path, err)
		}
	}
	return nil
}

// checkDir reports whether path already is a directory. Anything else in its
// place is a conflict.
func checkDir(path string) (bool, error) {
	stat, err := os.Stat(path)
	switch {
	case err == nil && stat.IsDir():
		return true, nil
	case err == nil, errors.Is(err, syscall.ENOTDIR):
		return false, fmt.Errorf("%w: %s", ErrOutputPathConflict, path)
	case !os.IsNotExist(err):
		return false, err
	}
	return false, nil
}

// baseFlags are the standard and optimization flags, in that order
func baseFlags(cfg project.Config) []string {
	return []string{
		"-std=c++" + strconv.Itoa(cfg.Compiler.Std),
		"-O" + strconv.Itoa(cfg.Compiler.Ol),
	}
}

func wallFlags(cfg project.Config) []string {
	if cfg.Compiler.Wall {
		return []string{"-Wall"}
	}
	return nil
}

// extraFlags splits every configured extra entry on whitespace, keeping the
// configured order
func extraFlags(cfg project.Config) []string {
	var flags []string
	for _, e := range cfg.Compiler.Extra {
		flags = append(flags, strings.Fields(e)...)
	}
	return flags
}

func linkFlags(cfg project.Config) []string {
	var flags []string
	for _, lib := range cfg.Compiler.Link {
		lib = strings.TrimPrefix(strings.TrimSpace(lib), "-l")
		if lib == "" {
			continue
		}
		flags = append(flags, "-l"+lib)
	}
	return flags
}

func staticPipeline(cfg project.Config, l layout, units []string) *Pipeline {
	p := &Pipeline{
		Mode:       project.ModeStatic,
		Compile:    make([]Invocation, 0, len(units)),
		Objects:    make([]string, 0, len(units)),
		LibraryOut: l.archive,
		Executable: l.exe,
	}

	for i, src := range units {
		obj := l.objectPath(i)
		args := baseFlags(cfg)
		args = append(args, wallFlags(cfg)...)
		args = append(args, "-c", src, "-o", obj)
		args = append(args, extraFlags(cfg)...)

		p.Compile = append(p.Compile, Invocation{
			Stage:   StageCompile,
			Program: cfg.Compiler.Cxx,
			Args:    args,
			Verb:    "Compiling",
			Subject: src,
		})
		p.Objects = append(p.Objects, obj)
	}

	// archive exactly the objects produced above, never a directory listing
	args := append([]string{"rcs", l.archive}, p.Objects...)
	p.Library = Invocation{
		Stage:   StageLibrary,
		Program: archiver,
		Args:    args,
		Verb:    "Archiving",
		Subject: l.archive,
	}
	p.Link = linkInvocation(cfg, l)
	return p
}

func dynamicPipeline(cfg project.Config, l layout, units []string) *Pipeline {
	args := []string{"-shared", "-fPIC"}
	args = append(args, baseFlags(cfg)...)
	args = append(args, units...)
	args = append(args, "-o", l.shared)
	args = append(args, wallFlags(cfg)...)
	args = append(args, extraFlags(cfg)...)

	return &Pipeline{
		Mode:    project.ModeDynamic,
		Compile: []Invocation{},
		Library: Invocation{
			Stage:   StageLibrary,
			Program: cfg.Compiler.Cxx,
			Args:    args,
			Verb:    "Linking",
			Subject: l.shared,
		},
		Link:       linkInvocation(cfg, l),
		Objects:    []string{},
		LibraryOut: l.shared,
		Executable: l.exe,
	}
}

func linkInvocation(cfg project.Config, l layout) Invocation {
	args := baseFlags(cfg)
	args = append(args,
		filepath.Clean(cfg.Target.Entrance),
		"-o", l.exe,
		"-L"+l.libDir,
		"-l"+l.name,
		"-I"+l.incDir,
	)
	args = append(args, wallFlags(cfg)...)
	args = append(args, linkFlags(cfg)...)
	args = append(args, extraFlags(cfg)...)

	return Invocation{
		Stage:   StageLink,
		Program: cfg.Compiler.Cxx,
		Args:    args,
		Verb:    "Linking",
		Subject: l.exe,
	}
}
