package cmd

import (
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/jackerschott/sparrow/pkg/model"
	"github.com/spf13/cobra"
)

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs on the host",
	Run: func(cmd *cobra.Command, args []string) {
		logger := mustGetLogger()

		h := runsHost(logger)
		defer h.Close()

		running, err := h.RunningRuns()
		if err != nil {
			wrapFatalln("list running runs", err)
			return
		}

		ids := running
		if !params.runs.running {
			ids, err = h.Runs()
			if err != nil {
				wrapFatalln("list runs", err)
				return
			}
		}

		runningSet := map[model.RunID]bool{}
		for _, id := range running {
			runningSet[id] = true
		}

		table := uitable.New()
		table.AddRow(
			color.New(color.Bold).Sprint("GROUP"),
			color.New(color.Bold).Sprint("NAME"),
			color.New(color.Bold).Sprint("RUNNING"))
		for _, id := range ids {
			state := "no"
			if runningSet[id] {
				state = color.GreenString("yes")
			}
			table.AddRow(id.Group, id.Name, state)
		}
		infoLogger.Println(table)
	},
}

func init() {
	runsListCmd.Flags().BoolVar(&params.runs.running, runningFlag, false,
		"only list runs that are currently running")

	runsCmd.AddCommand(runsListCmd)
}
