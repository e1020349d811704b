// sm run [path] [-- args]
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/qobs-build/sm/internal/msg"
	"github.com/spf13/cobra"
)

// splitRunArgs separates the project path from the program arguments;
// everything after "--" goes to the program
func splitRunArgs(args []string, dash int) (string, []string, error) {
	if dash >= 0 {
		if dash > 1 {
			return "", nil, fmt.Errorf("expected at most one project path before \"--\", got %d: %s", dash, strings.Join(args[:dash], " "))
		}
		return targetDir(args[:dash]), args[dash:], nil
	}
	if len(args) == 0 {
		return ".", nil, nil
	}
	return args[0], args[1:], nil
}

func doRun(cmd *cobra.Command, args []string) {
	target, progArgs, err := splitRunArgs(args, cmd.ArgsLenAtDash())
	if err != nil {
		msg.Fatal("%v", err)
	}
	b := loadBuilder(target)
	ctx, stop := interruptContext()
	defer stop()

	err = b.BuildAndRun(ctx, progArgs)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.ExitCode())
	}
	exitOnBuildError(err)
}

var runCmd = &cobra.Command{
	Use:   "run [project path] [-- program args]",
	Short: "Build and run the project",
	Long:  `Build and run the project. If no project path is given, uses "."`,
	Args:  cobra.ArbitraryArgs,
	Run:   doRun,
}

func init() {
	// sm run subcommand
	rootCmd.AddCommand(runCmd)
	addBuildFlags(runCmd)
}
