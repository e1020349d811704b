// sm new <name>, sm init [name]
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/go-git/go-git/v6"
	"github.com/qobs-build/sm/internal/msg"
	"github.com/qobs-build/sm/internal/project"
	"github.com/spf13/cobra"
)

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	} else {
		msg.Warn("%s already exists, leaving it untouched", filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "sm"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

// initRepo creates an empty git repository in dir. An existing repository
// is left alone and is not an error.
func initRepo(dir string) error {
	_, err := git.PlainInit(dir, false)
	switch {
	case errors.Is(err, git.ErrTargetDirNotEmpty):
		// PlainInit only looks at .git, so dir already is a repository
		return nil
	case err != nil:
		return fmt.Errorf("could not initialize git repository: %w", err)
	}
	fmt.Printf("%s git repository: %s\n", color.HiGreenString("Initialized"), filepath.ToSlash(dir))
	return nil
}

// writeConfig writes project.toml into dir
func writeConfig(dir, name string) {
	writefile(project.Template(name, project.DefaultCompiler()), dir, project.Filename)
}

// scaffold lays out a new project in an existing directory
func scaffold(dir, name, vcs string) {
	writeConfig(dir, name)

	mkdir(dir, "inc")
	mkdir(dir, "src")

	// inc/hello.hpp
	writefile(`#ifndef HELLO_HPP
#define HELLO_HPP

#include <string>

std::string hello(const std::string& name);

#endif
`, dir, "inc", "hello.hpp")

	// src/hello.cpp, compiled without include flags
	writefile(`#include "../inc/hello.hpp"

std::string hello(const std::string& name) {
    return "Hello, " + name + "!";
}
`, dir, "src", "hello.cpp")

	// main.cpp
	writefile(`#include <iostream>
#include "hello.hpp"

int main() {
    std::cout << hello("World") << std::endl;
    return 0;
}
`, dir, "main.cpp")

	// .gitignore
	writefile(project.ObjDir+`/
lib/
bin/
`, dir, ".gitignore")

	if vcs == "git" {
		if err := initRepo(dir); err != nil {
			msg.Warn("%v", err)
		}
	}

	programName := getProgramName()
	fmt.Printf("You can now do %s to build, or %s to build and run.\n", color.HiCyanString(programName+" build "+dir), color.HiCyanString(programName+" run "+dir))
}

var (
	flagNewVcs  EnumValue = NewEnumValue("git", map[string]string{"git": "Initialize a git repository", "none": "No version control"})
	flagInitVcs EnumValue = NewEnumValue("none", map[string]string{"git": "Initialize a git repository", "none": "No version control"})
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new project in a new directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := args[0]
		if _, err := os.Stat(dir); err == nil {
			msg.Fatal("destination %s already exists", dir)
		}
		mkdir(dir)
		scaffold(dir, filepath.Base(dir), flagNewVcs.Value())
	},
}

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Write a project.toml for an existing project in the current directory",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			msg.Fatal("could not get current directory: %v", err)
		}
		name := filepath.Base(cwd)
		if len(args) > 0 {
			name = args[0]
		}
		writeConfig(".", name)
		if flagInitVcs.Value() == "git" {
			if err := initRepo("."); err != nil {
				msg.Warn("%v", err)
			}
		}
	},
}

func init() {
	// sm new subcommand
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().Var(&flagNewVcs, "vcs", "Version control for the new project, one of "+flagNewVcs.HelpString())

	// sm init subcommand
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Var(&flagInitVcs, "vcs", "Version control for the project, one of "+flagInitVcs.HelpString())
}
