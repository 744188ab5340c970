package host

import (
	"fmt"
	"os"
	"path"
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

// QuickRunHostnameSuffix is appended to a remote's hostname to select
// the ssh-config entry that routes through the pre-allocated node. The
// operator's ssh configuration must define that entry; sparrow only
// relies on the naming convention.
const QuickRunHostnameSuffix = "-quick"

// fromRemoteMarkerName marks a local directory as a sync destination
// that sparrow itself populated, so subsequent syncs may overwrite it.
const fromRemoteMarkerName = ".from_remote"

type remoteConnection interface {
	CommandSession
	Upload(localPath, remotePath string, opts ...rsync.Option) error
	Download(remotePath, localPath string, opts ...rsync.Option) error
	Close() error
}

// SlurmClusterHost executes runs on a Slurm cluster reached over a
// single multiplexed ssh session.
type SlurmClusterHost struct {
	id                       string
	hostname                 string
	outputBaseDirPath        string
	temporaryDirPath         string
	scriptRunCommandTemplate string
	configuredForQuickRun    bool

	conn    remoteConnection
	quick   *QuickRunController
	fs      afero.Fs
	copyDir copyDirFunc
	unpack  unpackFunc
	log     *zap.Logger
}

// NewSlurmClusterHost connects to the cluster named by cfg. With
// configureForQuickRun the connection targets the quick-run ssh alias,
// which only resolves while a node is held.
func NewSlurmClusterHost(id string, cfg config.RemoteHostConfig, configureForQuickRun bool, log *zap.Logger) (*SlurmClusterHost, error) {
	hostname := cfg.Hostname
	if configureForQuickRun {
		hostname += QuickRunHostnameSuffix
	}

	conn, err := Connect(hostname, log)
	if err != nil {
		if configureForQuickRun {
			return nil, errors.Newf("could not reach %s, did you forget to prepare the remote?", hostname).Wrap(err)
		}
		return nil, err
	}

	template := cfg.ScriptRunCommandTemplate
	if template == "" {
		template = defaultScriptRunCommandTemplate
	}

	h := &SlurmClusterHost{
		id:                       id,
		hostname:                 hostname,
		outputBaseDirPath:        cfg.RunOutputBaseDir,
		temporaryDirPath:         cfg.TemporaryDir,
		scriptRunCommandTemplate: template,
		configuredForQuickRun:    configureForQuickRun,
		conn:                     conn,
		quick:                    NewQuickRunController(conn, log),
		fs:                       afero.NewOsFs(),
		copyDir:                  rsync.CopyDirectory,
		unpack:                   payload.UnpackRevision,
		log:                      log,
	}
	return h, nil
}

// ID of this host as given in the configuration
func (h *SlurmClusterHost) ID() string {
	return h.id
}

// Hostname the host is reached under, including the quick-run suffix
// when rerouted
func (h *SlurmClusterHost) Hostname() string {
	return h.hostname
}

// OutputBaseDirPath under which all run output lands on the cluster
func (h *SlurmClusterHost) OutputBaseDirPath() string {
	return h.outputBaseDirPath
}

// IsLocal is false
func (h *SlurmClusterHost) IsLocal() bool {
	return false
}

// IsConfiguredForQuickRun reports whether the session is rerouted
// through a pre-allocated node
func (h *SlurmClusterHost) IsConfiguredForQuickRun() bool {
	return h.configuredForQuickRun
}

// Info describes the host for the run-script template
func (h *SlurmClusterHost) Info() model.HostInfo {
	return model.HostInfo{
		ID:                      h.id,
		Hostname:                h.hostname,
		RunOutputBaseDirPath:    h.outputBaseDirPath,
		IsLocal:                 false,
		IsConfiguredForQuickRun: h.configuredForQuickRun,
	}
}

// ScriptRunCommand renders the configured run-command template
func (h *SlurmClusterHost) ScriptRunCommand(scriptPath string) string {
	return renderScriptRunCommand(h.scriptRunCommandTemplate, scriptPath)
}

// PrepareRunDirectory stages the payload locally and uploads it into a
// fresh directory under the cluster's temporary dir. The local staging
// copy is discarded either way; the remote directory's lifetime is the
// cluster's cleanup policy.
func (h *SlurmClusterHost) PrepareRunDirectory(codeMappings []model.CodeMapping,
	auxiliaryMappings []model.AuxiliaryMapping, runScriptPath string) (*RunDirectory, error) {

	prepDir, err := stagePayload(codeMappings, auxiliaryMappings, runScriptPath, h.copyDir, h.unpack)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(prepDir) }()

	remoteDir := path.Join(h.temporaryDirPath, model.StagingDirName())
	err = h.conn.Upload(prepDir, remoteDir,
		rsync.CopyContents(),
		rsync.CreateMissingPathComponents())
	if err != nil {
		return nil, errors.Newf("could not upload the run directory to %s", h.hostname).Wrap(err)
	}
	return &RunDirectory{path: remoteDir, remote: true}, nil
}

// PrepareConfigDirectory freezes the run configuration on the cluster
func (h *SlurmClusterHost) PrepareConfigDirectory(source model.ConfigSource, id model.RunID,
	codeVersions []model.CodeVersion, review bool) error {
	return prepareConfigDirectory(h, h.copyDir, source, id, codeVersions, review)
}

// Put uploads a local path to the cluster
func (h *SlurmClusterHost) Put(localPath, hostPath string, opts ...rsync.Option) error {
	return h.conn.Upload(localPath, hostPath, opts...)
}

// CreateDir creates a single directory on the cluster
func (h *SlurmClusterHost) CreateDir(path string) error {
	return h.conn.Command("mkdir", path).Status()
}

// CreateDirAll creates a directory and any missing parents on the
// cluster
func (h *SlurmClusterHost) CreateDirAll(path string) error {
	return h.conn.Command("mkdir", "-p", path).Status()
}

// PrepareQuickRun submits the towel job holding a node for quick runs
func (h *SlurmClusterHost) PrepareQuickRun(opts QuickRunPrepOptions) error {
	return h.quick.Allocate(opts)
}

// QuickRunIsPrepared probes the scheduler for a running towel job
func (h *SlurmClusterHost) QuickRunIsPrepared() (bool, error) {
	return h.quick.IsAllocated()
}

// ClearPreparation cancels the towel job and releases the node
func (h *SlurmClusterHost) ClearPreparation() error {
	return h.quick.Deallocate()
}

// Runs enumerates group/name directory pairs under the output base
func (h *SlurmClusterHost) Runs() ([]model.RunID, error) {
	out, err := h.conn.Command("find", h.outputBaseDirPath,
		"-mindepth", "2", "-maxdepth", "2", "-type", "d").Output()
	if err != nil {
		return nil, errors.Newf("could not enumerate runs on %s", h.hostname).Wrap(err)
	}
	return parseRunPaths(h.outputBaseDirPath, string(out))
}

// RunningRuns lists the tmux sessions runs execute in. No tmux server
// means no running runs, not an error.
func (h *SlurmClusterHost) RunningRuns() ([]model.RunID, error) {
	out, err := h.conn.Command("tmux", "list-sessions", "-F", "#{session_name}").Output()
	if err != nil {
		return []model.RunID{}, nil
	}

	ids := []model.RunID{}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		id, err := model.ParseRunID(line)
		if err != nil {
			// sessions the operator started by hand are not runs
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// LogFilePaths lists logs/*.log under the run's directory on the
// cluster, relative to the run directory
func (h *SlurmClusterHost) LogFilePaths(id model.RunID) ([]string, error) {
	runPath := id.Path(h.outputBaseDirPath)
	out, err := h.conn.Command("find", path.Join(runPath, "logs"),
		"-name", "*.log", "-type", "f").Output()
	if err != nil {
		return []string{}, nil
	}

	paths := []string{}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		paths = append(paths, strings.TrimPrefix(line, runPath+"/"))
	}
	return paths, nil
}

// Attach connects the operator's terminal to the run's tmux session
func (h *SlurmClusterHost) Attach(id model.RunID) error {
	remoteCmd := fmt.Sprintf("exec tmux attach-session -t '%s'", EscapeSingleQuotes(id.String()))
	return ExecShell(fmt.Sprintf("exec ssh -qtt %s '%s'", h.hostname, EscapeSingleQuotes(remoteCmd)))
}

// Sync pulls the run's output tree into localBasePath. A non-empty
// destination that sparrow did not populate itself is refused so a
// stray local directory is never clobbered.
func (h *SlurmClusterHost) Sync(id model.RunID, localBasePath string, opts model.RunOutputSyncOptions) error {
	destination := id.Path(localBasePath)
	if err := checkSyncDestination(h.fs, destination, opts.IgnoreFromRemoteMarker); err != nil {
		return err
	}
	if err := h.fs.MkdirAll(destination, 0o755); err != nil {
		return errors.Newf("could not create %s", destination).Wrap(err)
	}

	err := h.conn.Download(id.Path(h.outputBaseDirPath), destination,
		rsync.CopyContents(),
		rsync.Exclude(opts.Excludes...),
		rsync.Progress())
	if err != nil {
		return errors.Newf("could not sync the output of %s", id).Wrap(err)
	}
	return writeFromRemoteMarker(h.fs, destination)
}

// TailLog follows or dumps a log file of the run on the cluster
func (h *SlurmClusterHost) TailLog(id model.RunID, logFilePath string, follow bool) error {
	tool := "cat"
	if follow {
		tool = "tail -Fq"
	}
	logPath := path.Join(id.Path(h.outputBaseDirPath), logFilePath)
	remoteCmd := fmt.Sprintf("exec %s '%s'", tool, EscapeSingleQuotes(logPath))
	return ExecShell(fmt.Sprintf("exec ssh -qtt %s '%s'", h.hostname, EscapeSingleQuotes(remoteCmd)))
}

// Close tears down the ssh session
func (h *SlurmClusterHost) Close() error {
	return h.conn.Close()
}

func parseRunPaths(basePath, out string) ([]model.RunID, error) {
	ids := []model.RunID{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		rel, err := filepath.Rel(basePath, line)
		if err != nil {
			return nil, errors.Newf("unexpected run path %s", line).Wrap(err)
		}
		id, err := model.ParseRunID(filepath.ToSlash(rel))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// checkSyncDestination refuses a non-empty destination directory that
// does not carry the from-remote marker.
func checkSyncDestination(fs afero.Fs, destination string, ignoreMarker bool) error {
	if ignoreMarker {
		return nil
	}

	exists, err := afero.DirExists(fs, destination)
	if err != nil {
		return errors.Newf("could not probe %s", destination).Wrap(err)
	}
	if !exists {
		return nil
	}

	empty, err := afero.IsEmpty(fs, destination)
	if err != nil {
		return errors.Newf("could not probe %s", destination).Wrap(err)
	}
	if empty {
		return nil
	}

	marked, err := afero.Exists(fs, filepath.Join(destination, fromRemoteMarkerName))
	if err != nil {
		return errors.Newf("could not probe %s", destination).Wrap(err)
	}
	if !marked {
		return errors.Newf("refusing to overwrite %s, it was not synced from a remote", destination).
			Wrap(errors.ErrUserDeclined)
	}
	return nil
}

func writeFromRemoteMarker(fs afero.Fs, destination string) error {
	err := afero.WriteFile(fs, filepath.Join(destination, fromRemoteMarkerName), []byte{}, 0o644)
	if err != nil {
		return errors.Newf("could not mark %s as synced", destination).Wrap(err)
	}
	return nil
}
