// Package payload decides, per configured code component, whether a run
// uses the local working copy or a pinned git revision, resolves the
// effective configuration directory, and materializes pinned revisions.
package payload

import (
	"os"
	"path/filepath"

	"github.com/jackerschott/sparrow/pkg/config"
	"github.com/jackerschott/sparrow/pkg/errors"
	"github.com/jackerschott/sparrow/pkg/model"
	"github.com/spf13/afero"
)

// Resolve builds the full payload mapping from configuration and CLI
// overrides. Every ignoreRevisionIDs entry must name a configured code
// component exactly once; violations abort before any I/O happens.
func Resolve(cfg *config.GlobalConfig, configDirOverride string, ignoreRevisionIDs []string, fs afero.Fs) (*model.PayloadMapping, error) {
	if err := validateIgnoreRevisionIDs(cfg.Payload.Code, ignoreRevisionIDs); err != nil {
		return nil, err
	}

	ignored := make(map[string]bool, len(ignoreRevisionIDs))
	for _, id := range ignoreRevisionIDs {
		ignored[id] = true
	}

	codeMappings := make([]model.CodeMapping, 0, len(cfg.Payload.Code))
	for _, component := range cfg.Payload.Code {
		source, err := resolveCodeSource(component, ignored[component.ID], fs)
		if err != nil {
			return nil, err
		}
		mapping := model.CodeMapping{ID: component.ID, Source: source, TargetPath: component.Target}
		if err := mapping.Validate(); err != nil {
			return nil, errors.Newf("code component %q", component.ID).Wrap(err)
		}
		codeMappings = append(codeMappings, mapping)
	}

	configSource, err := resolveConfigSource(cfg.Payload.Config, configDirOverride)
	if err != nil {
		return nil, err
	}

	auxiliary := make([]model.AuxiliaryMapping, 0, len(cfg.Payload.Auxiliary))
	for _, aux := range cfg.Payload.Auxiliary {
		mapping := model.AuxiliaryMapping{
			SourcePath:   aux.Path,
			TargetPath:   aux.Target,
			CopyExcludes: aux.Excludes,
		}
		if err := mapping.Validate(); err != nil {
			return nil, errors.Newf("auxiliary mapping %q", aux.Path).Wrap(err)
		}
		auxiliary = append(auxiliary, mapping)
	}

	return &model.PayloadMapping{
		Code:      codeMappings,
		Config:    configSource,
		Auxiliary: auxiliary,
	}, nil
}

func validateIgnoreRevisionIDs(components []config.CodeMappingConfig, ids []string) error {
	known := make(map[string]bool, len(components))
	for _, component := range components {
		known[component.ID] = true
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !known[id] {
			return errors.Newf("revision-ignore id %q does not name a configured code component", id).
				Wrap(errors.ErrConfig)
		}
		if seen[id] {
			return errors.Newf("revision-ignore id %q given twice", id).Wrap(errors.ErrConfig)
		}
		seen[id] = true
	}
	return nil
}

func resolveCodeSource(component config.CodeMappingConfig, useLocal bool, fs afero.Fs) (model.CodeSource, error) {
	if !useLocal {
		return model.RemoteCodeSource{
			URL:         component.Remote.URL,
			GitRevision: component.Remote.Revision,
		}, nil
	}

	excludes, err := deriveCopyExcludes(fs, component.Local.Path, component.Local.Excludes)
	if err != nil {
		return nil, err
	}
	return model.LocalCodeSource{Path: component.Local.Path, CopyExcludes: excludes}, nil
}

// resolveConfigSource applies the override precedence: an explicit
// override path wins, resolved against the caller's working directory
// when relative; otherwise the configured default applies as is.
func resolveConfigSource(cfg config.ConfigSourceConfig, override string) (model.ConfigSource, error) {
	source := model.ConfigSource{
		DirPath:        cfg.Dir,
		EntrypointPath: cfg.Entrypoint,
	}
	if override != "" {
		entrypointRel, err := filepath.Rel(cfg.Dir, cfg.Entrypoint)
		if err != nil {
			return model.ConfigSource{}, errors.Newf("config entrypoint %q must lie under config dir %q",
				cfg.Entrypoint, cfg.Dir).Wrap(errors.ErrConfig)
		}
		dir := override
		if !filepath.IsAbs(dir) {
			wd, err := os.Getwd()
			if err != nil {
				return model.ConfigSource{}, errors.New("could not resolve working directory").Wrap(err)
			}
			dir = filepath.Join(wd, dir)
		}
		// An override is operator-supplied and may be absolute; only
		// the configured default is held to the relative-path rule.
		return model.ConfigSource{
			DirPath:        dir,
			EntrypointPath: filepath.Join(dir, entrypointRel),
		}, nil
	}

	if err := source.Validate(); err != nil {
		return model.ConfigSource{}, err
	}
	return source, nil
}
