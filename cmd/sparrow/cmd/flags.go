package cmd

import (
	"github.com/spf13/cobra"
)

type flagsT struct {
	root struct {
		logLevel string
	}
	run struct {
		host            string
		name            string
		group           string
		configDir       string
		ignoreRevisions []string
		noConfigReview  bool
		onlyPrintScript bool
		quick           bool
	}
	quick struct {
		host       string
		time       string
		cpuCount   uint16
		gpuCount   uint16
		constraint string
	}
	runs struct {
		host    string
		running bool
		content string
		dest    string
		force   bool
		follow  bool
		quick   bool
	}
}

var params = flagsT{}

func addLogLevel(cmd *cobra.Command) string {
	cmd.PersistentFlags().StringVar(&params.root.logLevel, logLevelFlag, "info",
		"log level (debug, info, warn, error)")
	return logLevelFlag
}

func addRunHostFlag(cmd *cobra.Command) string {
	cmd.Flags().StringVarP(&params.run.host, hostFlag, "p", "local",
		"host to run on, the id of a configured remote or `local'")
	return hostFlag
}

func addQuickHostFlag(cmd *cobra.Command) string {
	cmd.PersistentFlags().StringVar(&params.quick.host, hostFlag, "",
		"id of the configured remote host")
	return hostFlag
}

func addRunsHostFlag(cmd *cobra.Command) string {
	cmd.PersistentFlags().StringVar(&params.runs.host, hostFlag, "",
		"id of the configured remote host, or `local'")
	return hostFlag
}

const (
	logLevelFlag   = "log-level"
	hostFlag       = "host"
	nameFlag       = "name"
	groupFlag      = "group"
	configDirFlag  = "config-dir"
	ignoreFlag     = "ignore-revision"
	noReviewFlag   = "no-config-review"
	onlyScriptFlag = "only-print-run-script"
	quickFlag      = "quick"
	timeFlag       = "time"
	cpusFlag       = "cpus"
	gpusFlag       = "gpus"
	constraintFlag = "constraint"
	runningFlag    = "running"
	contentFlag    = "content"
	destFlag       = "dest"
	forceFlag      = "force"
	followFlag     = "follow"
)
