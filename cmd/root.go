// sm [path], sm build [path]
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/qobs-build/sm/internal/msg"
	"github.com/spf13/cobra"
)

var (
	flagVerbose bool
	flagNoColor bool
	flagMode    EnumValue = NewEnumValue("", map[string]string{
		"static":  "Archive the sources into lib<name>.a",
		"dynamic": "Link the sources into lib<name>.so",
		"sta":     "Same as static",
		"dyn":     "Same as dynamic",
	})
	flagCxx EnumValue = NewEnumValue("", map[string]string{
		"g++":     "GNU C++ compiler",
		"clang++": "LLVM C++ compiler",
	})
)

func doBuild(cmd *cobra.Command, args []string) {
	b := loadBuilder(targetDir(args))
	ctx, stop := interruptContext()
	defer stop()

	_, err := b.Build(ctx)
	exitOnBuildError(err)
}

var rootCmd = &cobra.Command{
	Use:   getProgramName() + " [project path]",
	Short: "A minimal build tool for C++ projects",
	Long: `A minimal build tool for C++ projects.

Reads project.toml, compiles every source under the source directory into a
static or dynamic library and links the entrance file against it.`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		msg.Verbose = flagVerbose
		if flagNoColor {
			color.NoColor = true
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			return
		}
		doBuild(cmd, args)
	},
}

var buildCmd = &cobra.Command{
	Use:   "build [project path]",
	Short: "Build the project",
	Long:  `Build the project. If no project path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doBuild,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print every command before running it")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	addBuildFlags(rootCmd)

	// sm build subcommand
	rootCmd.AddCommand(buildCmd)
	addBuildFlags(buildCmd)
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().VarP(&flagMode, "mode", "m", "Override target.mode, one of "+flagMode.HelpString())
	cmd.Flags().Var(&flagCxx, "cxx", "Override compiler.cxx, one of "+flagCxx.HelpString())
	cmd.RegisterFlagCompletionFunc("mode", flagMode.CompletionFunc())
	cmd.RegisterFlagCompletionFunc("cxx", flagCxx.CompletionFunc())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
