package payload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jackerschott/sparrow/pkg/config"
	"github.com/jackerschott/sparrow/pkg/errors"
	"github.com/jackerschott/sparrow/pkg/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveFixtureConfig() *config.GlobalConfig {
	return &config.GlobalConfig{
		Payload: config.PayloadMappingConfig{
			Code: []config.CodeMappingConfig{
				{
					ID:     "main",
					Local:  config.LocalCodeSourceConfig{Path: "."},
					Remote: config.RemoteCodeSourceConfig{URL: "git@example.org:lab/main", Revision: "v2.1"},
					Target: "code",
				},
				{
					ID:     "tools",
					Local:  config.LocalCodeSourceConfig{Path: "../tools"},
					Remote: config.RemoteCodeSourceConfig{URL: "git@example.org:lab/tools", Revision: "8fa31bc"},
					Target: "tools",
				},
			},
			Config: config.ConfigSourceConfig{Dir: "conf", Entrypoint: "conf/main.yaml"},
			Auxiliary: []config.AuxiliaryMappingConfig{
				{Path: "/data/containers", Target: "containers", Excludes: []string{"*.tmp"}},
			},
		},
	}
}

func TestResolveIgnoreRevisionValidation(t *testing.T) {
	for _, fixture := range []struct {
		name       string
		ignoreIDs  []string
		wantsError bool
	}{
		{name: "no ignores"},
		{name: "known id", ignoreIDs: []string{"main"}},
		{name: "all ids", ignoreIDs: []string{"main", "tools"}},
		{name: "unknown id", ignoreIDs: []string{"nonsense"}, wantsError: true},
		{name: "duplicate id", ignoreIDs: []string{"main", "main"}, wantsError: true},
	} {
		t.Run(fixture.name, func(t *testing.T) {
			_, err := Resolve(resolveFixtureConfig(), "", fixture.ignoreIDs, afero.NewMemMapFs())
			if fixture.wantsError {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestResolveCodeSourceSelection(t *testing.T) {
	mapping, err := Resolve(resolveFixtureConfig(), "", []string{"tools"}, afero.NewMemMapFs())
	require.NoError(t, err)
	require.Len(t, mapping.Code, 2)

	remote, ok := mapping.Code[0].Source.(model.RemoteCodeSource)
	require.True(t, ok, "non-ignored component resolves to its pinned revision")
	assert.Equal(t, "v2.1", remote.GitRevision)

	local, ok := mapping.Code[1].Source.(model.LocalCodeSource)
	require.True(t, ok, "ignored component resolves to the working copy")
	assert.Equal(t, "../tools", local.Path)
	assert.Contains(t, local.CopyExcludes, ".git")

	assert.Equal(t, []model.CodeVersion{{ID: "main", Revision: "v2.1"}}, mapping.CodeVersions())
}

func TestResolveConfigDirOverride(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	t.Run("default from configuration", func(t *testing.T) {
		mapping, err := Resolve(resolveFixtureConfig(), "", nil, afero.NewMemMapFs())
		require.NoError(t, err)
		assert.Equal(t, "conf", mapping.Config.DirPath)
		assert.Equal(t, "conf/main.yaml", mapping.Config.EntrypointPath)
	})

	t.Run("relative override resolves against working directory", func(t *testing.T) {
		mapping, err := Resolve(resolveFixtureConfig(), "variants/conf-b", nil, afero.NewMemMapFs())
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(wd, "variants/conf-b"), mapping.Config.DirPath)
		assert.Equal(t, filepath.Join(wd, "variants/conf-b/main.yaml"), mapping.Config.EntrypointPath)
	})

	t.Run("absolute override used verbatim", func(t *testing.T) {
		mapping, err := Resolve(resolveFixtureConfig(), "/abs/conf", nil, afero.NewMemMapFs())
		require.NoError(t, err)
		assert.Equal(t, "/abs/conf", mapping.Config.DirPath)
		assert.Equal(t, "/abs/conf/main.yaml", mapping.Config.EntrypointPath)
	})
}

func TestResolveAuxiliaryMappings(t *testing.T) {
	mapping, err := Resolve(resolveFixtureConfig(), "", nil, afero.NewMemMapFs())
	require.NoError(t, err)
	require.Len(t, mapping.Auxiliary, 1)
	assert.Equal(t, "/data/containers", mapping.Auxiliary[0].SourcePath)
	assert.Equal(t, "containers", mapping.Auxiliary[0].TargetPath)
	assert.Equal(t, []string{"*.tmp"}, mapping.Auxiliary[0].CopyExcludes)
}

func TestResolveRejectsEscapingTarget(t *testing.T) {
	cfg := resolveFixtureConfig()
	cfg.Payload.Code[0].Target = "../outside"
	_, err := Resolve(cfg, "", nil, afero.NewMemMapFs())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfig))
}
