package cmd

import (
	"os"
	"os/exec"
	"strings"

	"github.com/jackerschott/sparrow/pkg/errors"
	"github.com/jackerschott/sparrow/pkg/host"
	"github.com/jackerschott/sparrow/pkg/model"
	"github.com/jackerschott/sparrow/pkg/payload"
	"github.com/jackerschott/sparrow/pkg/runner"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [-- runner args...]",
	Short: "Stage and dispatch a run",
	Args:  cobra.ArbitraryArgs,
	Long: `Stage and dispatch a run.

The payload is resolved from the configuration, the run configuration is
frozen under the run's reproduce_info directory and the rendered run
script is executed on the selected host. Remote runs execute inside a
detached tmux session named after the run; the run's exit code is
propagated when the session is attended.
`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := mustGetLogger()

		group := params.run.group
		if group == "" {
			group = config.RunGroup
		}
		if group == "" {
			wrapFatalln("a run group is required, set run_group in the configuration or pass --group", nil)
			return
		}
		id := model.NewRunID(params.run.name, group)

		mapping, err := payload.Resolve(config, params.run.configDir, params.run.ignoreRevisions, afero.NewOsFs())
		if err != nil {
			wrapFatalln("resolve payload", err)
			return
		}

		h, err := host.New(params.run.host, config, params.run.quick, logger)
		if err != nil {
			wrapFatalln("set up host", err)
			return
		}
		defer func() {
			if err := h.Close(); err != nil {
				logger.Error("closing the host session failed")
			}
		}()

		r, err := runner.New(config.Runner, logger)
		if err != nil {
			wrapFatalln("set up runner", err)
			return
		}

		cmdline := h.ScriptRunCommand(host.RunScriptName)
		if len(args) > 0 {
			cmdline += " " + strings.Join(args, " ")
		}
		scriptPath, err := r.CreateRunScript(model.RunInfo{
			ID:     id,
			Host:   h.Info(),
			Runner: r.Info(cmdline),
			Payload: model.PayloadInfo{
				CodeVersions:  mapping.CodeVersions(),
				ConfigDirPath: id.ConfigDirDestinationPath(h.OutputBaseDirPath()),
			},
			OutputPath: id.Path(h.OutputBaseDirPath()),
		})
		if err != nil {
			wrapFatalln("create run script", err)
			return
		}
		defer os.Remove(scriptPath)

		if params.run.onlyPrintScript {
			script, err := os.ReadFile(scriptPath)
			if err != nil {
				wrapFatalln("read back run script", err)
				return
			}
			infoLogger.Print(string(script))
			return
		}

		err = h.PrepareConfigDirectory(mapping.Config, id, mapping.CodeVersions(), !params.run.noConfigReview)
		if err != nil {
			wrapFatalln("prepare config directory", err)
			return
		}

		runDir, err := h.PrepareRunDirectory(mapping.Code, mapping.Auxiliary, scriptPath)
		if err != nil {
			wrapFatalln("prepare run directory", err)
			return
		}

		err = r.Run(h, runDir, id, args)
		if releaseErr := runDir.Release(); releaseErr != nil {
			logger.Error("releasing the run directory failed")
		}
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				wrapFatalWithCodef(exitErr.ExitCode(), "run %s exited with code %d", id, exitErr.ExitCode())
				return
			}
			wrapFatalln("dispatch run", err)
			return
		}
	},
}

func init() {
	requiredFlags := []string{}

	addRunHostFlag(runCmd)
	runCmd.Flags().StringVarP(&params.run.name, nameFlag, "n", "", "name of the run")
	requiredFlags = append(requiredFlags, nameFlag)
	runCmd.Flags().StringVarP(&params.run.group, groupFlag, "g", "",
		"group of the run, defaults to run_group from the configuration")
	runCmd.Flags().StringVarP(&params.run.configDir, configDirFlag, "c", "",
		"config directory overriding the configured one")
	runCmd.Flags().StringSliceVarP(&params.run.ignoreRevisions, ignoreFlag, "v", nil,
		"code component id whose pinned revision is ignored in favor of the local working copy")
	runCmd.Flags().BoolVar(&params.run.noConfigReview, noReviewFlag, false,
		"skip the interactive config review")
	runCmd.Flags().BoolVar(&params.run.onlyPrintScript, onlyScriptFlag, false,
		"print the rendered run script instead of executing anything")
	runCmd.Flags().BoolVarP(&params.run.quick, quickFlag, "q", false,
		"run on the pre-allocated quick-run node")

	for _, flag := range requiredFlags {
		if err := runCmd.MarkFlagRequired(flag); err != nil {
			logFatalln(err)
		}
	}

	rootCmd.AddCommand(runCmd)
}
