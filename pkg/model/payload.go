package model

import (
	"path/filepath"
	"strings"

	"github.com/jackerschott/sparrow/pkg/errors"
)

// CodeSource is where a code component comes from: either the working
// copy on local disk or a pinned revision on a git remote. The variant
// set is closed.
type CodeSource interface {
	isCodeSource()
}

// LocalCodeSource copies a working tree, minus excludes
type LocalCodeSource struct {
	Path         string
	CopyExcludes []string
}

// RemoteCodeSource materializes a pinned git revision
type RemoteCodeSource struct {
	URL         string
	GitRevision string
}

func (LocalCodeSource) isCodeSource()  {}
func (RemoteCodeSource) isCodeSource() {}

// CodeMapping pairs a code source with a stable id and the path it
// lands on inside the run directory.
type CodeMapping struct {
	ID         string
	Source     CodeSource
	TargetPath string
}

// Validate enforces that the target path stays inside the staging root.
// A violation is a programming error in the configuration wiring, not
// something a retry can fix.
func (m CodeMapping) Validate() error {
	return validateTargetPath(m.TargetPath)
}

// ConfigSource names the configuration directory and its entrypoint file
type ConfigSource struct {
	DirPath        string
	EntrypointPath string
}

// Validate checks the dir path is relative, non-trivial, and contains
// the entrypoint.
func (s ConfigSource) Validate() error {
	if s.DirPath == "" {
		return errors.New("config dir path must not be empty").Wrap(errors.ErrConfig)
	}
	if filepath.IsAbs(s.DirPath) {
		return errors.Newf("config dir path %q must be relative", s.DirPath).Wrap(errors.ErrConfig)
	}
	if filepath.Clean(s.DirPath) == "." {
		return errors.New("config dir path must not be the working directory itself").Wrap(errors.ErrConfig)
	}
	rel, err := filepath.Rel(s.DirPath, s.EntrypointPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.Newf("config entrypoint %q must lie under config dir %q",
			s.EntrypointPath, s.DirPath).Wrap(errors.ErrConfig)
	}
	return nil
}

// EntrypointRelPath yields the entrypoint path relative to the config dir
func (s ConfigSource) EntrypointRelPath() string {
	rel, err := filepath.Rel(s.DirPath, s.EntrypointPath)
	if err != nil {
		// Validate catches this before any caller gets here
		return filepath.Base(s.EntrypointPath)
	}
	return rel
}

// AuxiliaryMapping copies an extra directory verbatim into the run
// directory, independent of code and config (container images and the
// like).
type AuxiliaryMapping struct {
	SourcePath   string
	TargetPath   string
	CopyExcludes []string
}

// Validate enforces that the target path stays inside the staging root
func (m AuxiliaryMapping) Validate() error {
	return validateTargetPath(m.TargetPath)
}

// PayloadMapping is the fully resolved set of everything a run executes
type PayloadMapping struct {
	Code      []CodeMapping
	Config    ConfigSource
	Auxiliary []AuxiliaryMapping
}

// CodeVersion records the resolved revision of one pinned component
type CodeVersion struct {
	ID       string `json:"id" yaml:"id"`
	Revision string `json:"revision" yaml:"revision"`
}

// CodeVersions lists the pinned revisions of the mapping, in component
// order. Components used from the local working copy carry no revision
// and are skipped.
func (p PayloadMapping) CodeVersions() []CodeVersion {
	versions := make([]CodeVersion, 0, len(p.Code))
	for _, m := range p.Code {
		if remote, ok := m.Source.(RemoteCodeSource); ok {
			versions = append(versions, CodeVersion{ID: m.ID, Revision: remote.GitRevision})
		}
	}
	return versions
}

func validateTargetPath(target string) error {
	if target == "" {
		return errors.New("target path must not be empty").Wrap(errors.ErrConfig)
	}
	if filepath.IsAbs(target) {
		return errors.Newf("target path %q must be relative", target).Wrap(errors.ErrConfig)
	}
	clean := filepath.Clean(target)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return errors.Newf("target path %q escapes the staging root", target).Wrap(errors.ErrConfig)
	}
	return nil
}
