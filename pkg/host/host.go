// Package host unifies run execution on the operator's own machine and
// on a remote Slurm cluster behind one capability set. The variant set
// is closed: LocalHost and SlurmClusterHost are the only
// implementations.
package host

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jackerschott/sparrow/pkg/config"
	"github.com/jackerschott/sparrow/pkg/errors"
	"github.com/jackerschott/sparrow/pkg/model"
	"github.com/jackerschott/sparrow/pkg/payload"
	"github.com/jackerschott/sparrow/pkg/rsync"
	"go.uber.org/zap"
)

// LocalHostID selects execution on the operator's machine
const LocalHostID = "local"

// RunScriptName is the rendered script's name inside a run directory
const RunScriptName = "run.sh"

const defaultScriptRunCommandTemplate = "bash {}"

// Host is the capability set both execution targets satisfy.
type Host interface {
	ID() string
	Hostname() string
	OutputBaseDirPath() string
	IsLocal() bool
	IsConfiguredForQuickRun() bool
	Info() model.HostInfo

	// ScriptRunCommand renders the configured run-command template for
	// a script path
	ScriptRunCommand(scriptPath string) string

	// PrepareRunDirectory materializes every code and auxiliary mapping
	// plus the rendered run script into a fresh staging area and hands
	// it to the variant-specific upload step. Partial staging areas are
	// discarded on failure.
	PrepareRunDirectory(codeMappings []model.CodeMapping, auxiliaryMappings []model.AuxiliaryMapping, runScriptPath string) (*RunDirectory, error)

	// PrepareConfigDirectory freezes the run configuration under
	// reproduce_info/config, after an optional interactive review, and
	// writes the code-version manifest next to it. This is the only
	// point where an operator can still mutate configuration.
	PrepareConfigDirectory(source model.ConfigSource, id model.RunID, codeVersions []model.CodeVersion, review bool) error

	Put(localPath, hostPath string, opts ...rsync.Option) error
	CreateDir(path string) error
	CreateDirAll(path string) error

	PrepareQuickRun(opts QuickRunPrepOptions) error
	QuickRunIsPrepared() (bool, error)
	ClearPreparation() error

	Runs() ([]model.RunID, error)
	RunningRuns() ([]model.RunID, error)

	// LogFilePaths lists log files under the run's output tree,
	// relative to the run directory (logs/*.log convention)
	LogFilePaths(id model.RunID) ([]string, error)

	Attach(id model.RunID) error
	Sync(id model.RunID, localBasePath string, opts model.RunOutputSyncOptions) error
	TailLog(id model.RunID, logFilePath string, follow bool) error

	Close() error
}

// New builds the host selected by hostID: the local machine or one of
// the configured remotes. configureForQuickRun reroutes the remote's
// hostname to the held quick-run node; it is contradictory for the
// local host.
func New(hostID string, cfg *config.GlobalConfig, configureForQuickRun bool, log *zap.Logger) (Host, error) {
	if hostID == LocalHostID {
		if configureForQuickRun {
			return nil, errors.New("cannot use quick-run mode with the local host").Wrap(errors.ErrConfig)
		}
		return NewLocalHost(cfg.LocalHost, log), nil
	}

	remoteCfg, ok := cfg.RemoteHosts[hostID]
	if !ok {
		return nil, errors.Newf("unknown host id: %s", hostID).Wrap(errors.ErrConfig)
	}
	return NewSlurmClusterHost(hostID, remoteCfg, configureForQuickRun, log)
}

// RunDirectory is a materialized run directory: a locally owned
// staging directory for local runs, or a path on the remote host whose
// cleanup is the remote side's policy.
type RunDirectory struct {
	path    string
	remote  bool
	cleanup func() error
}

// Path of the run directory on its host
func (d *RunDirectory) Path() string {
	return d.path
}

// IsRemote reports whether the directory lives on the remote host
func (d *RunDirectory) IsRemote() bool {
	return d.remote
}

// Release drops a locally owned run directory; remote directories are
// left alone
func (d *RunDirectory) Release() error {
	if d.cleanup == nil {
		return nil
	}
	return d.cleanup()
}

// QuickRunPrepOptions are the scheduler submission parameters for node
// pre-allocation.
type QuickRunPrepOptions struct {
	Account                  string
	ServiceQuality           string
	Constraint               string
	Partitions               []string
	Time                     string
	CPUCount                 uint16
	GPUCount                 uint16
	FastAccessContainerPaths []string
	NodeLocalStoragePath     string
}

type copyDirFunc func(source, destination string, opts ...rsync.Option) error
type unpackFunc func(url, revision, destinationPath, sshKeyPath string) error

// stagePayload materializes the payload into a fresh temporary staging
// directory. Any failure discards the partial staging area and is
// propagated; a run never executes from a half-materialized tree.
func stagePayload(codeMappings []model.CodeMapping, auxiliaryMappings []model.AuxiliaryMapping,
	runScriptPath string, copyDir copyDirFunc, unpack unpackFunc) (string, error) {

	prepDir, err := os.MkdirTemp("", "sparrow-stage-")
	if err != nil {
		return "", errors.New("could not create staging directory").Wrap(err)
	}
	if err := fillStaging(prepDir, codeMappings, auxiliaryMappings, runScriptPath, copyDir, unpack); err != nil {
		_ = os.RemoveAll(prepDir)
		return "", err
	}
	return prepDir, nil
}

func fillStaging(prepDir string, codeMappings []model.CodeMapping, auxiliaryMappings []model.AuxiliaryMapping,
	runScriptPath string, copyDir copyDirFunc, unpack unpackFunc) error {

	for _, mapping := range codeMappings {
		if err := mapping.Validate(); err != nil {
			return err
		}
		destination := filepath.Join(prepDir, mapping.TargetPath)
		switch source := mapping.Source.(type) {
		case model.LocalCodeSource:
			err := copyDir(source.Path, destination,
				rsync.CopyContents(),
				rsync.CreateMissingPathComponents(),
				rsync.Exclude(source.CopyExcludes...))
			if err != nil {
				return errors.Newf("could not copy code component %q", mapping.ID).Wrap(err)
			}
		case model.RemoteCodeSource:
			err := unpack(source.URL, source.GitRevision, destination, payload.DefaultDeployKeyPath())
			if err != nil {
				return errors.Newf("could not materialize code component %q at %q",
					mapping.ID, source.GitRevision).Wrap(err)
			}
		}
	}

	for _, mapping := range auxiliaryMappings {
		if err := mapping.Validate(); err != nil {
			return err
		}
		err := copyDir(mapping.SourcePath, filepath.Join(prepDir, mapping.TargetPath),
			rsync.CopyContents(),
			rsync.CreateMissingPathComponents(),
			rsync.Exclude(mapping.CopyExcludes...))
		if err != nil {
			return errors.Newf("could not copy auxiliary directory %q", mapping.SourcePath).Wrap(err)
		}
	}

	script, err := os.ReadFile(runScriptPath)
	if err != nil {
		return errors.Newf("could not read run script %s", runScriptPath).Wrap(err)
	}
	if err := os.WriteFile(filepath.Join(prepDir, RunScriptName), script, 0o755); err != nil {
		return errors.New("could not write run script into staging directory").Wrap(err)
	}
	return nil
}

// prepareConfigDirectory implements the config-freeze flow shared by
// both variants; only Put/CreateDirAll differ between them.
func prepareConfigDirectory(h Host, copyDir copyDirFunc, source model.ConfigSource,
	id model.RunID, codeVersions []model.CodeVersion, review bool) error {

	stagingDir, err := os.MkdirTemp("", "sparrow-config-")
	if err != nil {
		return errors.New("could not create config staging directory").Wrap(err)
	}
	defer func() { _ = os.RemoveAll(stagingDir) }()

	if err := copyDir(source.DirPath, stagingDir, rsync.CopyContents()); err != nil {
		return errors.Newf("could not copy config directory %s", source.DirPath).Wrap(err)
	}

	if review {
		entrypoint := filepath.Join(stagingDir, source.EntrypointRelPath())
		if err := reviewConfig(stagingDir, entrypoint); err != nil {
			return err
		}
	}

	destination := id.ConfigDirDestinationPath(h.OutputBaseDirPath())
	if err := h.CreateDirAll(destination); err != nil {
		return err
	}
	if err := h.Put(stagingDir, destination, rsync.CopyContents(), rsync.Delete()); err != nil {
		return errors.Newf("could not upload the config directory for %s", id).Wrap(err)
	}

	manifestPath := filepath.Join(stagingDir, model.CodeVersionsFileName)
	if err := os.WriteFile(manifestPath, encodeCodeVersions(codeVersions), 0o644); err != nil {
		return errors.New("could not write the code version manifest").Wrap(err)
	}
	if err := h.Put(manifestPath, id.CodeVersionsPath(h.OutputBaseDirPath())); err != nil {
		return errors.Newf("could not upload the code version manifest for %s", id).Wrap(err)
	}
	return nil
}

func encodeCodeVersions(versions []model.CodeVersion) []byte {
	var b strings.Builder
	for _, version := range versions {
		fmt.Fprintf(&b, "%s = %s\n", version.ID, version.Revision)
	}
	return []byte(b.String())
}

// reviewConfig opens the copied configuration in the operator's editor,
// entrypoint first, and blocks until the editor exits.
func reviewConfig(dirPath, entrypointPath string) error {
	terminal := os.Getenv("TERMINAL")
	if terminal == "" {
		return errors.New("TERMINAL must be set to review the run configuration").Wrap(errors.ErrConfig)
	}
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return errors.New("EDITOR must be set to review the run configuration").Wrap(errors.ErrConfig)
	}

	args := []string{"-e", editor, entrypointPath}
	err := filepath.WalkDir(dirPath, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || path == entrypointPath {
			return nil
		}
		args = append(args, path)
		return nil
	})
	if err != nil {
		return errors.Newf("could not walk the config directory %s", dirPath).Wrap(err)
	}

	cmd := exec.Command(terminal, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.New("config review did not exit cleanly").
			Wrap(errors.ErrExternalTool.Wrap(err))
	}
	return nil
}

// ExecShell runs a command line through the operator's shell with the
// terminal attached. The child's non-zero exit comes back as an
// *exec.ExitError so callers can propagate the code.
func ExecShell(cmdline string) error {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	cmd := exec.Command(shell, "-c", cmdline)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func renderScriptRunCommand(template, scriptPath string) string {
	return strings.ReplaceAll(template, "{}", scriptPath)
}

// EscapeSingleQuotes makes s safe inside a single-quoted shell string
// by closing the quote, emitting a double-quoted quote, and reopening.
// Needed whenever a command line is nested into `ssh host '...'`.
func EscapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, `'`, `'"'"'`)
}
