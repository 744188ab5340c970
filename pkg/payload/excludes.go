package payload

import (
	"bufio"
	"path/filepath"
	"strings"

	"github.com/jackerschott/sparrow/pkg/errors"
	"github.com/spf13/afero"
)

const gitMetadataDir = ".git"

// deriveCopyExcludes builds the rsync exclude set for a local working
// copy: the patterns of its .gitignore, the git metadata directory, and
// the configured manual entries. A manual entry prefixed with `!`
// removes a matching derived pattern instead of adding one.
func deriveCopyExcludes(fs afero.Fs, codePath string, manual []string) ([]string, error) {
	excludes, err := readIgnorePatterns(fs, filepath.Join(codePath, ".gitignore"))
	if err != nil {
		return nil, err
	}
	excludes = append(excludes, gitMetadataDir)

	for _, entry := range manual {
		if removed, ok := strings.CutPrefix(entry, "!"); ok {
			excludes = remove(excludes, removed)
			continue
		}
		excludes = append(excludes, entry)
	}
	return excludes, nil
}

// readIgnorePatterns reads gitignore-syntax patterns, which rsync's
// exclude matching understands well enough for copy purposes. A missing
// file just means no derived excludes.
func readIgnorePatterns(fs afero.Fs, path string) ([]string, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, errors.Newf("could not probe %s", path).Wrap(err)
	}
	if !exists {
		return nil, nil
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Newf("could not open %s", path).Wrap(err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Newf("could not read %s", path).Wrap(err)
	}
	return patterns, nil
}

func remove(patterns []string, pattern string) []string {
	kept := patterns[:0]
	for _, p := range patterns {
		if p != pattern {
			kept = append(kept, p)
		}
	}
	return kept
}
