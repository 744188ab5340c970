package runner

import (
	"os"
	"testing"

	"github.com/jackerschott/sparrow/pkg/config"
	"github.com/jackerschott/sparrow/pkg/errors"
	"github.com/jackerschott/sparrow/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewEnvironmentTransferValidation(t *testing.T) {
	t.Setenv("SPARROW_TEST_TOKEN", "s3cret")

	t.Run("set variables are captured", func(t *testing.T) {
		r, err := New(config.RunnerConfig{
			EnvironmentVariableTransferRequests: []string{"SPARROW_TEST_TOKEN"},
		}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "s3cret", r.envTransfers["SPARROW_TEST_TOKEN"])
	})

	t.Run("unset variable fails construction", func(t *testing.T) {
		_, err := New(config.RunnerConfig{
			EnvironmentVariableTransferRequests: []string{"SPARROW_TEST_UNSET"},
		}, zap.NewNop())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConfig))
	})
}

func TestTmuxWrap(t *testing.T) {
	wrapped := tmuxWrap("classify/baseline", "bash run.sh")
	assert.Equal(t, "exec tmux new-session -s 'classify/baseline' 'bash run.sh; bash'", wrapped)

	t.Run("quotes in the command survive nesting", func(t *testing.T) {
		wrapped := tmuxWrap("classify/baseline", "echo 'hi'")
		assert.Equal(t,
			`exec tmux new-session -s 'classify/baseline' 'echo '"'"'hi'"'"'; bash'`,
			wrapped)
	})
}

func TestEnvironmentPrefix(t *testing.T) {
	assert.Equal(t, "", environmentPrefix(nil))
	assert.Equal(t, "A='1' B='2' ", environmentPrefix(map[string]string{"B": "2", "A": "1"}))
	assert.Equal(t, `K='it'"'"'s' `, environmentPrefix(map[string]string{"K": "it's"}))
}

func TestCreateRunScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(dir+"/.sparrow", 0o755))
	require.NoError(t, os.WriteFile(dir+"/.sparrow/run.sh.tmpl", []byte(
		"#!/bin/bash\n"+
			"# run {{ .ID.Group }}/{{ .ID.Name }} on {{ .Host.Hostname }}\n"+
			"export OUTPUT_PATH={{ .OutputPath }}\n"+
			"{{ .Runner.Cmdline }}\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { require.NoError(t, os.Chdir(wd)) }()

	r, err := New(config.RunnerConfig{}, zap.NewNop())
	require.NoError(t, err)

	scriptPath, err := r.CreateRunScript(model.RunInfo{
		ID:         model.NewRunID("baseline", "classify"),
		Host:       model.HostInfo{Hostname: "login.cluster.example.org"},
		Runner:     r.Info("python train.py"),
		OutputPath: "/scratch/results/classify/baseline",
	})
	require.NoError(t, err)
	defer os.Remove(scriptPath)

	script, err := os.ReadFile(scriptPath)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/bash\n"+
		"# run classify/baseline on login.cluster.example.org\n"+
		"export OUTPUT_PATH=/scratch/results/classify/baseline\n"+
		"python train.py\n", string(script))
}

func TestCreateRunScriptMissingTemplate(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { require.NoError(t, os.Chdir(wd)) }()

	r, err := New(config.RunnerConfig{}, zap.NewNop())
	require.NoError(t, err)

	_, err = r.CreateRunScript(model.RunInfo{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfig))
}
