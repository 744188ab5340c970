package cmd

import (
	"github.com/spf13/cobra"
)

var quickClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Release the held quick-run node",
	Run: func(cmd *cobra.Command, args []string) {
		logger := mustGetLogger()

		h, _ := quickRemoteHost(logger)
		defer h.Close()

		if err := h.ClearPreparation(); err != nil {
			wrapFatalln("clear quick-run preparation", err)
			return
		}
		infoLogger.Printf("released the quick-run node on %s", params.quick.host)
	},
}

func init() {
	quickCmd.AddCommand(quickClearCmd)
}
