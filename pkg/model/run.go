// Package model describes the domain objects sparrow moves around:
// run identities, payload sources and the serializable context handed
// to the run-script template.
package model

import (
	"path/filepath"
	"strings"

	"github.com/jackerschott/sparrow/pkg/errors"
	"github.com/segmentio/ksuid"
)

// RunID identifies one run as a (name, group) pair.
//
// It is created at command entry and never mutated; every on-disk
// location derives from it via Path.
type RunID struct {
	Name  string `json:"name" yaml:"name"`
	Group string `json:"group" yaml:"group"`
}

// NewRunID yields the identity for a named run in a group
func NewRunID(name, group string) RunID {
	return RunID{Name: name, Group: group}
}

// ParseRunID parses a "group/name" display form back into an identity
func ParseRunID(s string) (RunID, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RunID{}, errors.Newf("invalid run id %q, expected group/name", s)
	}
	return RunID{Group: parts[0], Name: parts[1]}, nil
}

// Path locates the run's output tree under a base directory
func (id RunID) Path(basePath string) string {
	return filepath.Join(basePath, id.Group, id.Name)
}

func (id RunID) String() string {
	return id.Group + "/" + id.Name
}

// ReproduceInfoDirName is the directory under a run's output path that
// freezes everything needed to reproduce it.
const ReproduceInfoDirName = "reproduce_info"

// CodeVersionsFileName is the plain-text manifest of resolved code
// revisions, one `id = revision` line per pinned component.
const CodeVersionsFileName = "code_versions.txt"

// ConfigDirDestinationPath locates the frozen config copy for a run
func (id RunID) ConfigDirDestinationPath(basePath string) string {
	return filepath.Join(id.Path(basePath), ReproduceInfoDirName, "config")
}

// CodeVersionsPath locates the revision manifest for a run
func (id RunID) CodeVersionsPath(basePath string) string {
	return filepath.Join(id.Path(basePath), ReproduceInfoDirName, CodeVersionsFileName)
}

// StagingDirName yields a fresh unique name for a run staging directory
func StagingDirName() string {
	return "run." + ksuid.New().String()
}
