package cmd

import (
	gconfig "github.com/jackerschott/sparrow/pkg/config"
	"github.com/jackerschott/sparrow/pkg/host"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var quickCmd = &cobra.Command{
	Use:   "quick",
	Short: "Manage the quick-run node pre-allocation",
	Long: `Manage the quick-run node pre-allocation.

A prepared remote holds a compute node with a long-lived parking job, so
subsequent runs with --quick start immediately instead of waiting in the
scheduler queue. The operator's ssh configuration must define a
<hostname>-quick entry routing through the held node.
`,
}

func init() {
	requiredFlags := []string{addQuickHostFlag(quickCmd)}

	for _, flag := range requiredFlags {
		if err := quickCmd.MarkPersistentFlagRequired(flag); err != nil {
			logFatalln(err)
		}
	}

	rootCmd.AddCommand(quickCmd)
}

// quickRemoteHost connects to the quick-run target under its normal
// hostname; the preparation state itself is managed scheduler-side.
func quickRemoteHost(logger *zap.Logger) (host.Host, gconfig.RemoteHostConfig) {
	hostCfg, ok := config.RemoteHosts[params.quick.host]
	if !ok {
		wrapFatalln("unknown host id: "+params.quick.host, nil)
		return nil, gconfig.RemoteHostConfig{}
	}

	h, err := host.New(params.quick.host, config, false, logger)
	if err != nil {
		wrapFatalln("set up host", err)
		return nil, gconfig.RemoteHostConfig{}
	}
	return h, hostCfg
}
