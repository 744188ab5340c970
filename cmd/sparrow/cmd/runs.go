package cmd

import (
	"github.com/jackerschott/sparrow/pkg/host"
	"github.com/jackerschott/sparrow/pkg/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect and manage runs on a host",
}

func init() {
	requiredFlags := []string{addRunsHostFlag(runsCmd)}

	runsCmd.PersistentFlags().BoolVar(&params.runs.quick, quickFlag, false,
		"reach the host through the quick-run node")

	for _, flag := range requiredFlags {
		if err := runsCmd.MarkPersistentFlagRequired(flag); err != nil {
			logFatalln(err)
		}
	}

	rootCmd.AddCommand(runsCmd)
}

func runsHost(logger *zap.Logger) host.Host {
	h, err := host.New(params.runs.host, config, params.runs.quick, logger)
	if err != nil {
		wrapFatalln("set up host", err)
		return nil
	}
	return h
}

// argOrSelectedRun resolves the target run from the positional argument
// or, absent one, from an interactive selection over candidates.
func argOrSelectedRun(args []string, candidates []model.RunID) (model.RunID, error) {
	if len(args) > 0 {
		return model.ParseRunID(args[0])
	}

	items := make([]string, 0, len(candidates))
	for _, id := range candidates {
		items = append(items, id.String())
	}
	selected, err := selectString("run", items)
	if err != nil {
		return model.RunID{}, err
	}
	return model.ParseRunID(selected)
}
