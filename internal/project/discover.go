package project

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Kind classifies a discovered file
type Kind int

const (
	KindTranslationUnit Kind = iota
	KindHeader
)

func (k Kind) String() string {
	if k == KindHeader {
		return "header"
	}
	return "translation unit"
}

var extensionKinds = map[string]Kind{
	".cpp": KindTranslationUnit,
	".cc":  KindTranslationUnit,
	".cxx": KindTranslationUnit,
	".c++": KindTranslationUnit,
	".cp":  KindTranslationUnit,
	".h":   KindHeader,
	".hh":  KindHeader,
	".hpp": KindHeader,
	".hxx": KindHeader,
	".h++": KindHeader,
	".inl": KindHeader,
	".ipp": KindHeader,
	".tpp": KindHeader,
}

// ClassifyFile reports the kind of a path by its extension
func ClassifyFile(name string) (Kind, bool) {
	k, ok := extensionKinds[filepath.Ext(name)]
	return k, ok
}

// SourceFile is one discovered file, Path being relative to the project root
type SourceFile struct {
	Path string
	Kind Kind
}

// SourceFileSet is the ordered result of a discovery. Positions of
// translation units name their object files, so the order must stay stable.
type SourceFileSet []SourceFile

// TranslationUnits returns the compilable files in discovery order
func (s SourceFileSet) TranslationUnits() []string {
	var units []string
	for _, f := range s {
		if f.Kind == KindTranslationUnit {
			units = append(units, f.Path)
		}
	}
	return units
}

// Headers returns the header files in discovery order
func (s SourceFileSet) Headers() []string {
	var headers []string
	for _, f := range s {
		if f.Kind == KindHeader {
			headers = append(headers, f.Path)
		}
	}
	return headers
}

// Without returns a copy of the set lacking the given path
func (s SourceFileSet) Without(p string) SourceFileSet {
	p = filepath.Clean(p)
	out := make(SourceFileSet, 0, len(s))
	for _, f := range s {
		if filepath.Clean(f.Path) != p {
			out = append(out, f)
		}
	}
	return out
}

var ErrDirectoryUnreadable = errors.New("directory unreadable")

// DirectoryUnreadableError is returned when any directory of the source tree
// can't be listed
type DirectoryUnreadableError struct {
	Path string
	Err  error
}

func (e *DirectoryUnreadableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrDirectoryUnreadable, e.Path, e.Err)
}

func (e *DirectoryUnreadableError) Unwrap() []error {
	return []error{ErrDirectoryUnreadable, e.Err}
}

// Discover walks dir depth-first in lexical order and collects every
// recognized C++ source and header. dir is interpreted relative to root and
// returned paths keep that prefix. Files or directories matching one of the
// exclude patterns (doublestar syntax, relative to root) are skipped.
func Discover(root, dir string, exclude []string) (SourceFileSet, error) {
	for _, pat := range exclude {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("%w: invalid exclude pattern %q", ErrInvalidConfig, pat)
		}
	}

	set := SourceFileSet{}
	start := dir
	if !filepath.IsAbs(dir) {
		start = filepath.Join(root, dir)
	}
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &DirectoryUnreadableError{Path: p, Err: unwrapPathError(err)}
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		if excluded(filepath.ToSlash(rel), exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if kind, ok := ClassifyFile(d.Name()); ok {
			set = append(set, SourceFile{Path: filepath.Join(dir, mustRel(start, p)), Kind: kind})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func excluded(rel string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func mustRel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		panic(err)
	}
	return rel
}

func unwrapPathError(err error) error {
	var perr *fs.PathError
	if errors.As(err, &perr) {
		return perr.Err
	}
	return err
}
