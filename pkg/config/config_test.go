package config

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureConfigYAML = `
run_group: classify
payload:
  code:
    - id: main
      local:
        path: .
        excludes: ["notebooks"]
      remote:
        url: git@example.org:lab/main
        revision: v2.1
      target: code
  config:
    dir: conf
    entrypoint: conf/main.yaml
  auxiliary:
    - path: /data/containers
      target: containers
      excludes: ["*.tmp"]
remote_hosts:
  cluster:
    hostname: login.cluster.example.org
    script_run_command_template: "apptainer exec env.sif bash {}"
    run_output_base_dir: /scratch/results
    temporary_dir: /scratch/tmp
    quick_run:
      account: lab
      service_quality: express
      partitions: [gpu, gpu-long]
      time: "08:00:00"
      cpu_count: 16
      gpu_count: 2
      fast_access_container_requests: [/cluster/containers/env.sif]
      node_local_storage_path: /node-local
local_host:
  run_output_base_dir: /home/ml/results
runner:
  config:
    experiment: baseline
  environment_variable_transfer_requests: [WANDB_API_KEY]
run_output:
  sync_options:
    result_excludes: [reproduce_info]
    reproduce_excludes: [results]
  results: [results]
`

func TestLoad(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(fixtureConfigYAML)))

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "classify", cfg.RunGroup)

	require.Len(t, cfg.Payload.Code, 1)
	assert.Equal(t, "main", cfg.Payload.Code[0].ID)
	assert.Equal(t, "v2.1", cfg.Payload.Code[0].Remote.Revision)
	assert.Equal(t, []string{"notebooks"}, cfg.Payload.Code[0].Local.Excludes)
	assert.Equal(t, "conf/main.yaml", cfg.Payload.Config.Entrypoint)
	require.Len(t, cfg.Payload.Auxiliary, 1)
	assert.Equal(t, "containers", cfg.Payload.Auxiliary[0].Target)

	cluster, ok := cfg.RemoteHosts["cluster"]
	require.True(t, ok)
	assert.Equal(t, "login.cluster.example.org", cluster.Hostname)
	assert.Equal(t, uint16(16), cluster.QuickRun.CPUCount)
	assert.Equal(t, []string{"gpu", "gpu-long"}, cluster.QuickRun.Partitions)

	assert.Equal(t, "/home/ml/results", cfg.LocalHost.RunOutputBaseDir)
	assert.Equal(t, map[string]string{"experiment": "baseline"}, cfg.Runner.Config)
	assert.Equal(t, []string{"WANDB_API_KEY"}, cfg.Runner.EnvironmentVariableTransferRequests)
	assert.Equal(t, []string{"reproduce_info"}, cfg.RunOutput.SyncOptions.ResultExcludes)
}
