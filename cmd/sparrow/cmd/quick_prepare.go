package cmd

import (
	"github.com/jackerschott/sparrow/pkg/host"
	"github.com/spf13/cobra"
)

var quickPrepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Hold a compute node for quick runs",
	Long: `Hold a compute node for quick runs.

Submits the parking job and blocks until the node is provisioned, which
includes the scheduler queue wait. Preparing an already prepared remote
is a no-op.
`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := mustGetLogger()

		h, hostCfg := quickRemoteHost(logger)
		defer h.Close()

		prepared, err := h.QuickRunIsPrepared()
		if err != nil {
			wrapFatalln("probe quick-run preparation", err)
			return
		}
		if prepared {
			infoLogger.Printf("%s is already prepared for quick runs", params.quick.host)
			return
		}

		opts := host.QuickRunPrepOptions{
			Account:                  hostCfg.QuickRun.Account,
			ServiceQuality:           hostCfg.QuickRun.ServiceQuality,
			Constraint:               hostCfg.QuickRun.Constraint,
			Partitions:               hostCfg.QuickRun.Partitions,
			Time:                     hostCfg.QuickRun.Time,
			CPUCount:                 hostCfg.QuickRun.CPUCount,
			GPUCount:                 hostCfg.QuickRun.GPUCount,
			FastAccessContainerPaths: hostCfg.QuickRun.FastAccessContainerRequests,
			NodeLocalStoragePath:     hostCfg.QuickRun.NodeLocalStoragePath,
		}
		if cmd.Flags().Changed(timeFlag) {
			opts.Time = params.quick.time
		}
		if cmd.Flags().Changed(cpusFlag) {
			opts.CPUCount = params.quick.cpuCount
		}
		if cmd.Flags().Changed(gpusFlag) {
			opts.GPUCount = params.quick.gpuCount
		}
		if cmd.Flags().Changed(constraintFlag) {
			opts.Constraint = params.quick.constraint
		}

		if err := h.PrepareQuickRun(opts); err != nil {
			wrapFatalln("prepare quick-run node", err)
			return
		}
		infoLogger.Printf("%s is prepared for quick runs", params.quick.host)
	},
}

func init() {
	quickPrepareCmd.Flags().StringVar(&params.quick.time, timeFlag, "",
		"allocation time limit, overrides the configured default")
	quickPrepareCmd.Flags().Uint16Var(&params.quick.cpuCount, cpusFlag, 0,
		"cpu count, overrides the configured default")
	quickPrepareCmd.Flags().Uint16Var(&params.quick.gpuCount, gpusFlag, 0,
		"gpu count, overrides the configured default")
	quickPrepareCmd.Flags().StringVar(&params.quick.constraint, constraintFlag, "",
		"node constraint, overrides the configured default")

	quickCmd.AddCommand(quickPrepareCmd)
}
