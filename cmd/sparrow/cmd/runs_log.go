package cmd

import (
	"github.com/spf13/cobra"
)

var runsLogCmd = &cobra.Command{
	Use:   "log [group/name]",
	Short: "Show a log file of a run",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := mustGetLogger()

		h := runsHost(logger)
		defer h.Close()

		ids, err := h.Runs()
		if err != nil {
			wrapFatalln("list runs", err)
			return
		}
		id, err := argOrSelectedRun(args, ids)
		if err != nil {
			wrapFatalln("pick a run", err)
			return
		}

		logPaths, err := h.LogFilePaths(id)
		if err != nil {
			wrapFatalln("list log files of "+id.String(), err)
			return
		}
		logPath, err := selectString("log file", logPaths)
		if err != nil {
			wrapFatalln("pick a log file", err)
			return
		}

		if err := h.TailLog(id, logPath, params.runs.follow); err != nil {
			wrapFatalln("show log "+logPath, err)
			return
		}
	},
}

func init() {
	runsLogCmd.Flags().BoolVar(&params.runs.follow, followFlag, false,
		"keep following the log as it grows")

	runsCmd.AddCommand(runsLogCmd)
}
