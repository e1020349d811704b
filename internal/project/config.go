package project

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"
)

const (
	// Filename is the project description looked up in the project root
	Filename = "project.toml"
	// ObjDir is the hidden directory, relative to the project root, holding
	// intermediate objects and the last build report
	ObjDir = ".sm"
)

// legacySection is the misspelled compiler section written by early templates
const legacySection = "complier"

// Config is the validated, read-only description of one project
type Config struct {
	Target   TargetSection   `toml:"target"`
	Compiler CompilerSection `toml:"compiler"`
}

// TargetSection defines the [target] section
type TargetSection struct {
	Name     string   `toml:"name"`
	Inc      string   `toml:"inc"`
	Src      string   `toml:"src"`
	Entrance string   `toml:"entrance"`
	Mode     string   `toml:"mode"`
	Lib      string   `toml:"lib"`
	Bin      string   `toml:"bin"`
	Exclude  []string `toml:"exclude"`
}

// CompilerSection defines the [compiler] section
type CompilerSection struct {
	Cxx   string   `toml:"cxx"`
	Std   int      `toml:"std"`
	Wall  bool     `toml:"wall"`
	Ol    int      `toml:"ol"`
	Link  []string `toml:"link"`
	Extra []string `toml:"extra"`
}

// Default returns the configuration used for keys absent from project.toml
func Default() Config {
	return Config{
		Target: TargetSection{
			Inc:      "inc",
			Src:      "src",
			Entrance: "main.cpp",
			Mode:     "static",
			Lib:      "lib",
			Bin:      "bin",
		},
		Compiler: CompilerSection{
			Cxx:  DefaultCompiler(),
			Std:  11,
			Wall: true,
			Ol:   1,
		},
	}
}

// Mode returns the parsed build mode, ModeInvalid if it is not recognized
func (c Config) Mode() Mode {
	return ParseMode(c.Target.Mode)
}

// Clone returns a deep copy, so callers can derive overrides without
// touching the original value
func (c Config) Clone() Config {
	c.Target.Exclude = slices.Clone(c.Target.Exclude)
	c.Compiler.Link = slices.Clone(c.Compiler.Link)
	c.Compiler.Extra = slices.Clone(c.Compiler.Extra)
	return c
}

func mustMarshal(v any) string {
	b, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func decodeStrict(data string, dst any) error {
	dec := toml.NewDecoder(strings.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return errors.New(serr.String())
		}
		return err
	}
	return nil
}

// mergeTables overlays src onto dst: arrays are appended, tables are merged
// and everything else is replaced
func mergeTables(dst, src map[string]any) {
	for key, val := range src {
		switch v := val.(type) {
		case []any:
			if existing, ok := dst[key].([]any); ok {
				dst[key] = append(slices.Clone(existing), v...)
				continue
			}
			dst[key] = v
		case map[string]any:
			if existing, ok := dst[key].(map[string]any); ok {
				mergeTables(existing, v)
				continue
			}
			dst[key] = v
		default:
			dst[key] = v
		}
	}
}

// resolveConditionalSection splits a section into base keys and sub-tables
// keyed by an expression, then merges every sub-table whose expression is true
// into the base, in sorted key order
func resolveConditionalSection(sectionData any, name string, env ConfigEnv) (map[string]any, error) {
	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid [%s] section format: expected a table", name)
	}

	base := make(map[string]any)
	conditional := make(map[string]map[string]any)
	for key, val := range sectionMap {
		if subMap, ok := val.(map[string]any); ok {
			conditional[key] = subMap
		} else {
			base[key] = val
		}
	}

	keys := make([]string, 0, len(conditional))
	for k := range conditional {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, expression := range keys {
		program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression for [%s.%q]: %w", name, expression, err)
		}
		result, err := expr.Run(program, env)
		if err != nil {
			return nil, fmt.Errorf("failed to run expression for [%s.%q]: %w", name, expression, err)
		}
		if matched, ok := result.(bool); !ok || !matched {
			continue
		}
		mergeTables(base, conditional[expression])
	}

	return base, nil
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env ConfigEnv) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var builder strings.Builder
	lastIndex := 0

	for _, m := range matches {
		builder.WriteString(s[lastIndex:m[0]])

		expression := strings.TrimSpace(s[m[2]:m[3]])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}
		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("failed to run expression %q: %w", expression, err)
		}

		fmt.Fprintf(&builder, "%v", result)
		lastIndex = m[1]
	}

	builder.WriteString(s[lastIndex:])
	return builder.String(), nil
}

// processExpressions recursively walks the parsed TOML data and evaluates expressions in strings
func processExpressions(data any, env ConfigEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			processedVal, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processedVal
		}
		return v, nil
	case []any:
		for i, item := range v {
			processedItem, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processedItem
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}

// ParseConfig reads a project description, filling absent keys from Default.
// The result is not validated; see Config.Validate.
func ParseConfig(rdr io.Reader, env ConfigEnv) (*Config, error) {
	var rawConfig map[string]any
	dec := toml.NewDecoder(rdr)
	if err := dec.Decode(&rawConfig); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, errors.New(derr.String())
		}
		return nil, err
	}

	if legacy, ok := rawConfig[legacySection]; ok {
		if _, dup := rawConfig["compiler"]; dup {
			return nil, fmt.Errorf("both [compiler] and [%s] sections are present", legacySection)
		}
		rawConfig["compiler"] = legacy
		delete(rawConfig, legacySection)
	}

	for name := range rawConfig {
		if name != "target" && name != "compiler" {
			return nil, fmt.Errorf("unknown section [%s]", name)
		}
	}

	processed, err := processExpressions(rawConfig, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in config: %w", err)
	}
	rawConfig = processed.(map[string]any)

	cfg := Default()
	sections := []struct {
		name string
		dst  any
	}{
		{"target", &cfg.Target},
		{"compiler", &cfg.Compiler},
	}
	for _, s := range sections {
		data, ok := rawConfig[s.name]
		if !ok {
			continue
		}
		table, err := resolveConditionalSection(data, s.name, env)
		if err != nil {
			return nil, err
		}
		if err := decodeStrict(mustMarshal(table), s.dst); err != nil {
			return nil, fmt.Errorf("failed to parse [%s] section: %w", s.name, err)
		}
	}

	return &cfg, nil
}

// ParseConfigFromFile parses a config file from a filepath
func ParseConfigFromFile(path string, env ConfigEnv) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseConfig(bufio.NewReader(f), env)
}

// ParseConfigBytes is ParseConfig for in-memory documents
func ParseConfigBytes(data []byte, env ConfigEnv) (*Config, error) {
	return ParseConfig(bytes.NewReader(data), env)
}

// ConfigEnv is the environment visible to expressions in project.toml
type ConfigEnv struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
}

func NewConfigEnv() ConfigEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}

	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
	}
}

// ResolvePath interprets p relative to the project root unless it is absolute
func ResolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}
