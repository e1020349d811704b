package project

import (
	"os"
	"os/exec"
	"slices"
)

// DefaultCompiler picks the compiler written into new configurations: $CXX if
// it names a supported compiler, otherwise the first supported one on PATH
func DefaultCompiler() string {
	if cxx := os.Getenv("CXX"); slices.Contains(SupportedCompilers, cxx) {
		return cxx
	}
	for _, compiler := range SupportedCompilers {
		if _, err := exec.LookPath(compiler); err == nil {
			return compiler
		}
	}
	return SupportedCompilers[0]
}
