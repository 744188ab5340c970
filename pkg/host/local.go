package host

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackerschott/sparrow/pkg/config"
	"github.com/jackerschott/sparrow/pkg/errors"
	"github.com/jackerschott/sparrow/pkg/model"
	"github.com/jackerschott/sparrow/pkg/payload"
	"github.com/jackerschott/sparrow/pkg/rsync"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// LocalHost executes runs on the operator's own machine. Quick-run
// operations are trivially satisfied; there is no scheduler to hold a
// node on.
type LocalHost struct {
	outputBaseDirPath        string
	scriptRunCommandTemplate string

	fs      afero.Fs
	copyDir copyDirFunc
	unpack  unpackFunc
	log     *zap.Logger
}

// NewLocalHost builds the local execution target
func NewLocalHost(cfg config.LocalHostConfig, log *zap.Logger) *LocalHost {
	template := cfg.ScriptRunCommandTemplate
	if template == "" {
		template = defaultScriptRunCommandTemplate
	}
	return &LocalHost{
		outputBaseDirPath:        cfg.RunOutputBaseDir,
		scriptRunCommandTemplate: template,
		fs:                       afero.NewOsFs(),
		copyDir:                  rsync.CopyDirectory,
		unpack:                   payload.UnpackRevision,
		log:                      log,
	}
}

// ID of the local host
func (h *LocalHost) ID() string {
	return LocalHostID
}

// Hostname of the local host
func (h *LocalHost) Hostname() string {
	return "localhost"
}

// OutputBaseDirPath under which all run output lands
func (h *LocalHost) OutputBaseDirPath() string {
	return h.outputBaseDirPath
}

// IsLocal is true
func (h *LocalHost) IsLocal() bool {
	return true
}

// IsConfiguredForQuickRun is trivially true; local runs never queue
func (h *LocalHost) IsConfiguredForQuickRun() bool {
	return true
}

// Info describes the host for the run-script template
func (h *LocalHost) Info() model.HostInfo {
	return model.HostInfo{
		ID:                      h.ID(),
		Hostname:                h.Hostname(),
		RunOutputBaseDirPath:    h.outputBaseDirPath,
		IsLocal:                 true,
		IsConfiguredForQuickRun: true,
	}
}

// ScriptRunCommand renders the configured run-command template
func (h *LocalHost) ScriptRunCommand(scriptPath string) string {
	return renderScriptRunCommand(h.scriptRunCommandTemplate, scriptPath)
}

// PrepareRunDirectory stages the payload; for local execution the
// staging area itself becomes the run directory and is owned by the
// returned handle.
func (h *LocalHost) PrepareRunDirectory(codeMappings []model.CodeMapping,
	auxiliaryMappings []model.AuxiliaryMapping, runScriptPath string) (*RunDirectory, error) {

	prepDir, err := stagePayload(codeMappings, auxiliaryMappings, runScriptPath, h.copyDir, h.unpack)
	if err != nil {
		return nil, err
	}
	return &RunDirectory{
		path:    prepDir,
		cleanup: func() error { return os.RemoveAll(prepDir) },
	}, nil
}

// PrepareConfigDirectory freezes the run configuration locally
func (h *LocalHost) PrepareConfigDirectory(source model.ConfigSource, id model.RunID,
	codeVersions []model.CodeVersion, review bool) error {
	return prepareConfigDirectory(h, h.copyDir, source, id, codeVersions, review)
}

// Put copies a local path to another local path
func (h *LocalHost) Put(localPath, hostPath string, opts ...rsync.Option) error {
	if localPath == hostPath {
		return nil
	}
	return h.copyDir(localPath, hostPath, opts...)
}

// CreateDir creates a single directory
func (h *LocalHost) CreateDir(path string) error {
	if err := h.fs.Mkdir(path, 0o755); err != nil {
		return errors.Newf("could not create %s", path).Wrap(err)
	}
	return nil
}

// CreateDirAll creates a directory and any missing parents
func (h *LocalHost) CreateDirAll(path string) error {
	if err := h.fs.MkdirAll(path, 0o755); err != nil {
		return errors.Newf("could not create %s", path).Wrap(err)
	}
	return nil
}

// PrepareQuickRun is trivially satisfied on the local host
func (h *LocalHost) PrepareQuickRun(QuickRunPrepOptions) error {
	return nil
}

// QuickRunIsPrepared is trivially true on the local host
func (h *LocalHost) QuickRunIsPrepared() (bool, error) {
	return true, nil
}

// ClearPreparation is trivially satisfied on the local host
func (h *LocalHost) ClearPreparation() error {
	return nil
}

// Runs enumerates group/name directory pairs under the output base.
// A missing base directory means no runs yet; an unreadable one is an
// error.
func (h *LocalHost) Runs() ([]model.RunID, error) {
	exists, err := afero.DirExists(h.fs, h.outputBaseDirPath)
	if err != nil {
		return nil, errors.Newf("could not probe %s", h.outputBaseDirPath).Wrap(err)
	}
	if !exists {
		return []model.RunID{}, nil
	}

	groups, err := afero.ReadDir(h.fs, h.outputBaseDirPath)
	if err != nil {
		return nil, errors.Newf("could not read %s", h.outputBaseDirPath).Wrap(err)
	}

	ids := []model.RunID{}
	for _, group := range groups {
		if !group.IsDir() {
			continue
		}
		names, err := afero.ReadDir(h.fs, filepath.Join(h.outputBaseDirPath, group.Name()))
		if err != nil {
			return nil, errors.Newf("could not read run group %s", group.Name()).Wrap(err)
		}
		for _, name := range names {
			if !name.IsDir() {
				continue
			}
			ids = append(ids, model.NewRunID(name.Name(), group.Name()))
		}
	}
	return ids, nil
}

// RunningRuns is empty on the local host; local runs occupy the
// operator's terminal instead of a tracked session.
func (h *LocalHost) RunningRuns() ([]model.RunID, error) {
	return []model.RunID{}, nil
}

// LogFilePaths lists logs/*.log under the run directory
func (h *LocalHost) LogFilePaths(id model.RunID) ([]string, error) {
	runPath := id.Path(h.outputBaseDirPath)
	logsPath := filepath.Join(runPath, "logs")

	exists, err := afero.DirExists(h.fs, logsPath)
	if err != nil || !exists {
		return []string{}, err
	}

	paths := []string{}
	err = afero.Walk(h.fs, logsPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".log") {
			return nil
		}
		rel, err := filepath.Rel(runPath, path)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, errors.Newf("could not walk %s", logsPath).Wrap(err)
	}
	return paths, nil
}

// Attach has no meaning for local runs
func (h *LocalHost) Attach(model.RunID) error {
	return errors.New("attaching to a local run").Wrap(errors.ErrNotSupported)
}

// Sync is a no-op; local run output is already local
func (h *LocalHost) Sync(model.RunID, string, model.RunOutputSyncOptions) error {
	return nil
}

// TailLog follows or dumps a log file of the run
func (h *LocalHost) TailLog(id model.RunID, logFilePath string, follow bool) error {
	tool := "cat"
	if follow {
		tool = "tail -Fq"
	}
	path := filepath.Join(id.Path(h.outputBaseDirPath), logFilePath)
	return ExecShell(fmt.Sprintf("exec %s %s", tool, path))
}

// Close is a no-op; there is no session to tear down
func (h *LocalHost) Close() error {
	return nil
}
