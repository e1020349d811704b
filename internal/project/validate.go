package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

var (
	ErrInvalidConfig       = errors.New("invalid project configuration")
	ErrInvalidMode         = fmt.Errorf("%w: unsupported build mode", ErrInvalidConfig)
	ErrUnsupportedStd      = fmt.Errorf("%w: unsupported C++ standard", ErrInvalidConfig)
	ErrUnsupportedCompiler = fmt.Errorf("%w: unsupported compiler", ErrInvalidConfig)
	ErrInvalidOptLevel     = fmt.Errorf("%w: invalid optimization level", ErrInvalidConfig)
	ErrMissingField        = fmt.Errorf("%w: missing required field", ErrInvalidConfig)
)

var (
	SupportedStandards = []int{98, 11, 14, 17, 20}
	SupportedCompilers = []string{"g++", "clang++"}
)

const maxOptLevel = 3

// Validate checks every invariant of the configuration and reports all
// violations at once
func (c Config) Validate() error {
	var errs []error

	required := []struct{ key, value string }{
		{"target.name", c.Target.Name},
		{"target.inc", c.Target.Inc},
		{"target.src", c.Target.Src},
		{"target.entrance", c.Target.Entrance},
		{"target.lib", c.Target.Lib},
		{"target.bin", c.Target.Bin},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingField, r.key))
		}
	}
	if strings.ContainsAny(c.Target.Name, `/\`) || strings.ContainsFunc(c.Target.Name, isSpace) {
		errs = append(errs, fmt.Errorf("%w: target.name %q must not contain path separators or spaces", ErrInvalidConfig, c.Target.Name))
	}

	if c.Mode() == ModeInvalid {
		errs = append(errs, fmt.Errorf("%w %q (supported: static, dynamic)", ErrInvalidMode, c.Target.Mode))
	}
	if !slices.Contains(SupportedStandards, c.Compiler.Std) {
		errs = append(errs, fmt.Errorf("%w %d (supported: 98, 11, 14, 17, 20)", ErrUnsupportedStd, c.Compiler.Std))
	}
	if c.Compiler.Ol < 0 || c.Compiler.Ol > maxOptLevel {
		errs = append(errs, fmt.Errorf("%w %d (supported: 0-%d)", ErrInvalidOptLevel, c.Compiler.Ol, maxOptLevel))
	}
	if !slices.Contains(SupportedCompilers, c.Compiler.Cxx) {
		errs = append(errs, fmt.Errorf("%w %q (supported: %s)", ErrUnsupportedCompiler, c.Compiler.Cxx, strings.Join(SupportedCompilers, ", ")))
	}

	for _, dir := range []string{c.Target.Inc, c.Target.Src, c.Target.Lib, c.Target.Bin} {
		if dir != "" && filepath.Clean(dir) == ObjDir {
			errs = append(errs, fmt.Errorf("%w: %q is reserved for intermediate objects", ErrInvalidConfig, dir))
		}
	}

	errs = append(errs, c.outputOverlaps()...)

	return errors.Join(errs...)
}

// outputOverlaps rejects lib and bin directories that are, or contain, a
// directory holding user files, since clean removes them recursively
func (c Config) outputOverlaps() []error {
	var errs []error
	inputs := []struct{ key, dir string }{
		{"target.src", c.Target.Src},
		{"target.inc", c.Target.Inc},
		{"target.entrance", filepath.Dir(c.Target.Entrance)},
	}
	outputs := []struct{ key, dir string }{
		{"target.lib", c.Target.Lib},
		{"target.bin", c.Target.Bin},
	}
	for _, out := range outputs {
		if strings.TrimSpace(out.dir) == "" {
			continue
		}
		for _, in := range inputs {
			if strings.TrimSpace(in.dir) == "" {
				continue
			}
			if Contains(out.dir, in.dir) {
				errs = append(errs, fmt.Errorf("%w: %s %q would remove %s %q on clean", ErrInvalidConfig, out.key, out.dir, in.key, in.dir))
			}
		}
	}
	return errs
}

// Contains reports whether path is dir itself or lies below it. Both are
// taken relative to the same root.
func Contains(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
