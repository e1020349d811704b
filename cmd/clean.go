// sm clean [path], sm plan [path], sm status [path]
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/qobs-build/sm/internal/builder"
	"github.com/qobs-build/sm/internal/msg"
	"github.com/spf13/cobra"
)

var flagPlanOutput string

func doClean(cmd *cobra.Command, args []string) {
	b := loadBuilder(targetDir(args))
	if err := b.Clean(); err != nil {
		msg.Fatal("%v", err)
	}
}

func doPlan(cmd *cobra.Command, args []string) {
	// keep stdout for the script itself
	b := loadBuilder(targetDir(args), builder.WithOutput(os.Stderr))
	p, err := b.Plan()
	if err != nil {
		msg.Fatal("%v", err)
	}

	script := p.Script()
	if flagPlanOutput == "" {
		fmt.Print(script)
		return
	}
	if err := os.WriteFile(flagPlanOutput, []byte(script), 0o755); err != nil {
		msg.Fatal("write %s: %v", flagPlanOutput, err)
	}
	msg.Info("wrote %d commands to %s", len(p.Commands()), flagPlanOutput)
}

func doStatus(cmd *cobra.Command, args []string) {
	b := loadBuilder(targetDir(args))
	report, err := b.LastReport()
	if err != nil {
		msg.Fatal("%v", err)
	}
	if report == nil {
		msg.Info("%s has not been built yet", b.Dir())
		return
	}

	state := color.HiGreenString(report.State.String())
	if !report.Succeeded() {
		state = color.HiRedString(report.State.String())
	}
	fmt.Printf("build %s: %s (%s)\n", report.ID, state, report.Finished.Format("2006-01-02 15:04:05"))
	fmt.Printf("  %d commands executed\n", len(report.Executed))
	if f := report.Failed; f != nil {
		fmt.Printf("  failed: %s\n  command: %s\n", f.Label, f.Command)
		if f.Stderr != "" {
			fmt.Println(color.RedString(strings.TrimRight(f.Stderr, "\n")))
		}
	}
}

var cleanCmd = &cobra.Command{
	Use:   "clean [project path]",
	Short: "Remove the object, library and binary directories",
	Args:  cobra.MaximumNArgs(1),
	Run:   doClean,
}

var planCmd = &cobra.Command{
	Use:   "plan [project path]",
	Short: "Print the build commands as a shell script without running them",
	Args:  cobra.MaximumNArgs(1),
	Run:   doPlan,
}

var statusCmd = &cobra.Command{
	Use:   "status [project path]",
	Short: "Show the result of the last build",
	Args:  cobra.MaximumNArgs(1),
	Run:   doStatus,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	rootCmd.AddCommand(planCmd)
	addBuildFlags(planCmd)
	planCmd.Flags().StringVarP(&flagPlanOutput, "output", "o", "", "Write the script to a file instead of stdout")

	rootCmd.AddCommand(statusCmd)
}
