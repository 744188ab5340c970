package cmd

import (
	"github.com/jackerschott/sparrow/pkg/model"
	"github.com/spf13/cobra"
)

const (
	syncContentResults   = "results"
	syncContentReproduce = "reproduce"
)

var runsSyncCmd = &cobra.Command{
	Use:   "sync [group/name]",
	Short: "Pull a run's output to this machine",
	Long: `Pull a run's output to this machine.

The content selects which exclude set from the configuration applies:
results skips reproduction data, reproduce skips result data. A
non-empty local destination that was not populated by a previous sync
is refused unless --force is given.
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := mustGetLogger()

		var excludes []string
		switch params.runs.content {
		case syncContentResults:
			excludes = config.RunOutput.SyncOptions.ResultExcludes
		case syncContentReproduce:
			excludes = config.RunOutput.SyncOptions.ReproduceExcludes
		default:
			wrapFatalln("--content must be `results' or `reproduce'", nil)
			return
		}

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

		destBase := params.runs.dest
		if destBase == "" {
			destBase = config.LocalHost.RunOutputBaseDir
		}
		if destBase == "" {
			wrapFatalln("a sync destination is required, set local_host.run_output_base_dir or pass --dest", nil)
			return
		}

		err = h.Sync(id, destBase, model.RunOutputSyncOptions{
			Excludes:               excludes,
			IgnoreFromRemoteMarker: params.runs.force,
		})
		if err != nil {
			wrapFatalln("sync run "+id.String(), err)
			return
		}
		infoLogger.Printf("synced %s to %s", id, id.Path(destBase))
	},
}

func init() {
	runsSyncCmd.Flags().StringVar(&params.runs.content, contentFlag, syncContentResults,
		"which part of the output to pull (results, reproduce)")
	runsSyncCmd.Flags().StringVar(&params.runs.dest, destFlag, "",
		"local base directory, defaults to local_host.run_output_base_dir")
	runsSyncCmd.Flags().BoolVar(&params.runs.force, forceFlag, false,
		"overwrite a local destination that was not populated by a previous sync")

	runsCmd.AddCommand(runsSyncCmd)
}
