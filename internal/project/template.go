package project

import (
	"strconv"
	"strings"
)

const projectTemplate = `[target]
name = {name}
# include directory
inc = "inc"
# source directory, searched recursively
src = "src"
# file containing main(), relative to the project root
entrance = "main.cpp"
# library type: static (sta) or dynamic (dyn)
mode = "static"
# library output directory
lib = "lib"
# executable output directory
bin = "bin"
# glob patterns of files to leave out of the library
exclude = []

[compiler]
# supported compilers: g++, clang++
cxx = {cxx}
# supported standards: 98, 11, 14, 17, 20
std = 11
# enable -Wall
wall = true
# optimization level: 0, 1, 2, 3
ol = 1
# extra system libraries to link, e.g. ["pthread", "m"]
link = []
# extra compiler arguments
extra = []

# tables keyed by an expression are merged in when it is true, e.g.
# [compiler."target_os == 'linux'"]
# link = ["pthread"]
`

// Template returns a project.toml for a new project
func Template(name, cxx string) string {
	r := strings.NewReplacer("{name}", strconv.Quote(name), "{cxx}", strconv.Quote(cxx))
	return r.Replace(projectTemplate)
}
