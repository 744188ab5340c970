package cmd

import (
	"github.com/spf13/cobra"
)

var quickStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a quick-run node is held",
	Run: func(cmd *cobra.Command, args []string) {
		logger := mustGetLogger()

		h, _ := quickRemoteHost(logger)
		defer h.Close()

		prepared, err := h.QuickRunIsPrepared()
		if err != nil {
			wrapFatalln("probe quick-run preparation", err)
			return
		}
		if prepared {
			infoLogger.Printf("%s is prepared for quick runs", params.quick.host)
		} else {
			infoLogger.Printf("%s is not prepared for quick runs", params.quick.host)
		}
	},
}

func init() {
	quickCmd.AddCommand(quickStatusCmd)
}
