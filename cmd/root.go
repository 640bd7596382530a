package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgPath   string
	tasksPath string
)

var rootCmd = &cobra.Command{
	Use:   "mic-scheduler",
	Short: "Dynamic scheduling engine for MiC projects",
	Long: "Clusters construction and I&M tasks into execution batches, searches\n" +
		"Pareto-optimal schedules with an NSGA-II optimizer, and re-plans over a\n" +
		"rolling horizon as emergencies arrive.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVarP(&tasksPath, "tasks", "t", "tasks.json", "task input file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }
