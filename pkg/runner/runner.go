// Package runner renders the run script and dispatches its execution,
// either directly in the operator's shell or into a detached tmux
// session on the remote host.
package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/jackerschott/sparrow/pkg/config"
	"github.com/jackerschott/sparrow/pkg/errors"
	"github.com/jackerschott/sparrow/pkg/host"
	"github.com/jackerschott/sparrow/pkg/model"
	"go.uber.org/zap"
)

// RunScriptTemplatePath is the project-local template the run script is
// rendered from
const RunScriptTemplatePath = ".sparrow/run.sh.tmpl"

// Runner renders and dispatches the run script.
type Runner struct {
	config       map[string]string
	envTransfers map[string]string
	log          *zap.Logger
}

// New captures the environment variables requested for transfer to the
// remote session. A requested variable that is unset in the local
// environment fails construction; a run must never start with a silently
// missing credential.
func New(cfg config.RunnerConfig, log *zap.Logger) (*Runner, error) {
	envTransfers := map[string]string{}
	for _, name := range cfg.EnvironmentVariableTransferRequests {
		value, ok := os.LookupEnv(name)
		if !ok {
			return nil, errors.Newf("environment variable %s is requested for transfer but not set", name).
				Wrap(errors.ErrConfig)
		}
		envTransfers[name] = value
	}
	return &Runner{
		config:       cfg.Config,
		envTransfers: envTransfers,
		log:          log,
	}, nil
}

// Info describes the runner invocation for the run-script template
func (r *Runner) Info(cmdline string) model.RunnerInfo {
	return model.RunnerInfo{Cmdline: cmdline, Config: r.config}
}

// CreateRunScript renders the project's run-script template with the
// full run context into a temporary file and returns its path. The
// caller owns the file.
func (r *Runner) CreateRunScript(info model.RunInfo) (string, error) {
	tmpl, err := template.ParseFiles(RunScriptTemplatePath)
	if err != nil {
		return "", errors.Newf("could not parse the run script template %s", RunScriptTemplatePath).
			Wrap(errors.ErrConfig.Wrap(err))
	}

	scriptFile, err := os.CreateTemp("", "sparrow-run-*.sh")
	if err != nil {
		return "", errors.New("could not create the run script file").Wrap(err)
	}
	defer scriptFile.Close()

	if err := tmpl.Execute(scriptFile, info); err != nil {
		_ = os.Remove(scriptFile.Name())
		return "", errors.New("could not render the run script").Wrap(err)
	}
	return scriptFile.Name(), nil
}

// Run executes the staged run script on its host, with extraArgs
// appended to the script invocation. Local runs replace the operator's
// terminal with the script; remote runs start a tmux session named
// after the run and attach to it. A non-zero script exit comes back as
// an *exec.ExitError for the command layer to propagate.
func (r *Runner) Run(h host.Host, dir *host.RunDirectory, id model.RunID, extraArgs []string) error {
	scriptPath := filepath.Join(dir.Path(), host.RunScriptName)
	cmdline := h.ScriptRunCommand(scriptPath)
	if len(extraArgs) > 0 {
		cmdline += " " + strings.Join(extraArgs, " ")
	}

	if h.IsLocal() {
		return host.ExecShell(fmt.Sprintf("cd '%s' && %s",
			host.EscapeSingleQuotes(dir.Path()), cmdline))
	}

	remoteCmd := fmt.Sprintf("cd '%s' && %s%s",
		host.EscapeSingleQuotes(dir.Path()),
		environmentPrefix(r.envTransfers),
		tmuxWrap(id.String(), cmdline))
	r.log.Debug("dispatching run", zap.String("run_id", id.String()), zap.String("command", remoteCmd))
	return host.ExecShell(fmt.Sprintf("exec ssh -qtt %s '%s'",
		h.Hostname(), host.EscapeSingleQuotes(remoteCmd)))
}
