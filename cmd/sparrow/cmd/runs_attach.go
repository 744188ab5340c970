package cmd

import (
	"github.com/spf13/cobra"
)

var runsAttachCmd = &cobra.Command{
	Use:   "attach [group/name]",
	Short: "Attach to a running run's tmux session",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := mustGetLogger()

		h := runsHost(logger)
		defer h.Close()

		running, err := h.RunningRuns()
		if err != nil {
			wrapFatalln("list running runs", err)
			return
		}
		id, err := argOrSelectedRun(args, running)
		if err != nil {
			wrapFatalln("pick a run", err)
			return
		}

		if err := h.Attach(id); err != nil {
			wrapFatalln("attach to run "+id.String(), err)
			return
		}
	},
}

func init() {
	runsCmd.AddCommand(runsAttachCmd)
}
