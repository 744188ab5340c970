package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jackerschott/sparrow/pkg/errors"
	"github.com/jackerschott/sparrow/pkg/model"
	"github.com/jackerschott/sparrow/pkg/rsync"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type copyCall struct {
	source      string
	destination string
}

type unpackCall struct {
	url         string
	revision    string
	destination string
}

type stagingRecorder struct {
	copies  []copyCall
	unpacks []unpackCall
}

func (r *stagingRecorder) copyDir(source, destination string, opts ...rsync.Option) error {
	r.copies = append(r.copies, copyCall{source: source, destination: destination})
	return nil
}

func (r *stagingRecorder) unpack(url, revision, destination, sshKeyPath string) error {
	r.unpacks = append(r.unpacks, unpackCall{url: url, revision: revision, destination: destination})
	return nil
}

func writeRunScript(t *testing.T) string {
	t.Helper()
	scriptPath := filepath.Join(t.TempDir(), "run.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/bash\necho run\n"), 0o644))
	return scriptPath
}

func TestStagePayload(t *testing.T) {
	recorder := &stagingRecorder{}
	codeMappings := []model.CodeMapping{
		{
			ID:         "main",
			Source:     model.LocalCodeSource{Path: "/work/main", CopyExcludes: []string{".git"}},
			TargetPath: "code",
		},
		{
			ID:         "tools",
			Source:     model.RemoteCodeSource{URL: "git@example.org:lab/tools", GitRevision: "8fa31bc"},
			TargetPath: "tools",
		},
	}
	auxiliaryMappings := []model.AuxiliaryMapping{
		{SourcePath: "/data/containers", TargetPath: "containers"},
	}

	prepDir, err := stagePayload(codeMappings, auxiliaryMappings, writeRunScript(t),
		recorder.copyDir, recorder.unpack)
	require.NoError(t, err)
	defer os.RemoveAll(prepDir)

	require.Len(t, recorder.copies, 2)
	assert.Equal(t, "/work/main", recorder.copies[0].source)
	assert.Equal(t, filepath.Join(prepDir, "code"), recorder.copies[0].destination)
	assert.Equal(t, "/data/containers", recorder.copies[1].source)
	assert.Equal(t, filepath.Join(prepDir, "containers"), recorder.copies[1].destination)

	require.Len(t, recorder.unpacks, 1)
	assert.Equal(t, "git@example.org:lab/tools", recorder.unpacks[0].url)
	assert.Equal(t, "8fa31bc", recorder.unpacks[0].revision)
	assert.Equal(t, filepath.Join(prepDir, "tools"), recorder.unpacks[0].destination)

	info, err := os.Stat(filepath.Join(prepDir, RunScriptName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestStagePayloadRejectsEscapingTarget(t *testing.T) {
	recorder := &stagingRecorder{}
	for _, target := range []string{"../outside", "/abs", "code/../../outside"} {
		t.Run(target, func(t *testing.T) {
			codeMappings := []model.CodeMapping{{
				ID:         "main",
				Source:     model.LocalCodeSource{Path: "/work/main"},
				TargetPath: target,
			}}
			_, err := stagePayload(codeMappings, nil, writeRunScript(t),
				recorder.copyDir, recorder.unpack)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfig))
			assert.Empty(t, recorder.copies, "nothing may be copied for a rejected mapping")
		})
	}
}

type configCopyCall struct {
	source      string
	destination string
	args        []string
	sourceData  string
}

type configCopyRecorder struct {
	calls []configCopyCall
}

// copyDir records each invocation with its rendered rsync arguments.
// File sources are read eagerly since the staging directory is gone by
// the time assertions run.
func (r *configCopyRecorder) copyDir(source, destination string, opts ...rsync.Option) error {
	call := configCopyCall{
		source:      source,
		destination: destination,
		args:        rsync.Args(rsync.LocalToLocal{Sources: []string{source}, Destination: destination}, opts...),
	}
	if data, err := os.ReadFile(source); err == nil {
		call.sourceData = string(data)
	}
	r.calls = append(r.calls, call)
	return nil
}

func TestPrepareConfigDirectory(t *testing.T) {
	recorder := &configCopyRecorder{}
	fs := afero.NewMemMapFs()
	h := &LocalHost{
		outputBaseDirPath:        "/results",
		scriptRunCommandTemplate: defaultScriptRunCommandTemplate,
		fs:                       fs,
		copyDir:                  recorder.copyDir,
		log:                      zap.NewNop(),
	}

	id := model.NewRunID("baseline", "classify")
	source := model.ConfigSource{DirPath: "conf", EntrypointPath: "conf/main.yaml"}
	codeVersions := []model.CodeVersion{
		{ID: "main", Revision: "v2.1"},
		{ID: "tools", Revision: "8fa31bc"},
	}

	require.NoError(t, prepareConfigDirectory(h, recorder.copyDir, source, id, codeVersions, false))
	require.Len(t, recorder.calls, 3)

	staging := recorder.calls[0]
	assert.Equal(t, "conf", staging.source)
	assert.Contains(t, staging.args, "conf/", "the config dir contents are copied, not the dir itself")

	upload := recorder.calls[1]
	assert.Equal(t, "/results/classify/baseline/reproduce_info/config", upload.destination)
	assert.Contains(t, upload.args, "--delete", "re-freezing must drop config files removed since the last run")
	assert.Contains(t, upload.args, staging.destination+"/")

	manifest := recorder.calls[2]
	assert.Equal(t, "/results/classify/baseline/reproduce_info/code_versions.txt", manifest.destination)
	assert.Equal(t, "main = v2.1\ntools = 8fa31bc\n", manifest.sourceData)

	created, err := afero.DirExists(fs, "/results/classify/baseline/reproduce_info/config")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestPrepareConfigDirectoryReviewNeedsTerminal(t *testing.T) {
	t.Setenv("TERMINAL", "")
	recorder := &configCopyRecorder{}
	h := &LocalHost{
		outputBaseDirPath: "/results",
		fs:                afero.NewMemMapFs(),
		copyDir:           recorder.copyDir,
		log:               zap.NewNop(),
	}

	err := prepareConfigDirectory(h, recorder.copyDir,
		model.ConfigSource{DirPath: "conf", EntrypointPath: "conf/main.yaml"},
		model.NewRunID("baseline", "classify"), nil, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfig))
}

func TestEncodeCodeVersions(t *testing.T) {
	manifest := encodeCodeVersions([]model.CodeVersion{
		{ID: "main", Revision: "v2.1"},
		{ID: "tools", Revision: "8fa31bc"},
	})
	assert.Equal(t, "main = v2.1\ntools = 8fa31bc\n", string(manifest))
	assert.Empty(t, encodeCodeVersions(nil))
}

func TestRenderScriptRunCommand(t *testing.T) {
	assert.Equal(t, "bash run.sh", renderScriptRunCommand("bash {}", "run.sh"))
	assert.Equal(t, "apptainer exec env.sif bash run.sh",
		renderScriptRunCommand("apptainer exec env.sif bash {}", "run.sh"))
	assert.Equal(t, "no placeholder", renderScriptRunCommand("no placeholder", "run.sh"))
}

func TestEscapeSingleQuotes(t *testing.T) {
	assert.Equal(t, "plain", EscapeSingleQuotes("plain"))
	assert.Equal(t, `it'"'"'s`, EscapeSingleQuotes("it's"))
	assert.Equal(t, `'"'"''"'"'`, EscapeSingleQuotes("''"))
}

func TestNewRejectsQuickRunOnLocalHost(t *testing.T) {
	_, err := New(LocalHostID, fixtureGlobalConfig(), true, testLogger(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfig))
}

func TestNewRejectsUnknownHost(t *testing.T) {
	_, err := New("nonsense", fixtureGlobalConfig(), false, testLogger(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfig))
}
