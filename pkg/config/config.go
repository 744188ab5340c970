// Package config holds the typed view of sparrow's configuration file.
// The file is located and parsed by viper at the command layer; this
// package only defines the schema and the unmarshalling entry point.
// Validation beyond field presence happens where the values are used.
package config

import (
	"github.com/jackerschott/sparrow/pkg/errors"
	"github.com/spf13/viper"
)

// GlobalConfig is the root of the configuration file
type GlobalConfig struct {
	RunGroup    string                      `mapstructure:"run_group" yaml:"run_group"`
	Payload     PayloadMappingConfig        `mapstructure:"payload" yaml:"payload"`
	RemoteHosts map[string]RemoteHostConfig `mapstructure:"remote_hosts" yaml:"remote_hosts"`
	LocalHost   LocalHostConfig             `mapstructure:"local_host" yaml:"local_host"`
	Runner      RunnerConfig                `mapstructure:"runner" yaml:"runner"`
	RunOutput   RunOutputConfig             `mapstructure:"run_output" yaml:"run_output"`
}

// LocalCodeSourceConfig points at a working copy on local disk
type LocalCodeSourceConfig struct {
	Path string `mapstructure:"path" yaml:"path"`

	// Excludes add to the gitignore-derived exclude set; an entry
	// prefixed with `!` removes a derived pattern instead.
	Excludes []string `mapstructure:"excludes" yaml:"excludes"`
}

// RemoteCodeSourceConfig points at a pinned revision on a git remote
type RemoteCodeSourceConfig struct {
	URL      string `mapstructure:"url" yaml:"url"`
	Revision string `mapstructure:"revision" yaml:"revision"`
}

// CodeMappingConfig defines one named code component
type CodeMappingConfig struct {
	ID     string                 `mapstructure:"id" yaml:"id"`
	Local  LocalCodeSourceConfig  `mapstructure:"local" yaml:"local"`
	Remote RemoteCodeSourceConfig `mapstructure:"remote" yaml:"remote"`
	Target string                 `mapstructure:"target" yaml:"target"`
}

// ConfigSourceConfig defines the run configuration directory
type ConfigSourceConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir"`
	Entrypoint string `mapstructure:"entrypoint" yaml:"entrypoint"`
}

// AuxiliaryMappingConfig defines one extra directory copied into the run
type AuxiliaryMappingConfig struct {
	Path     string   `mapstructure:"path" yaml:"path"`
	Target   string   `mapstructure:"target" yaml:"target"`
	Excludes []string `mapstructure:"excludes" yaml:"excludes"`
}

// PayloadMappingConfig collects the payload definition
type PayloadMappingConfig struct {
	Code      []CodeMappingConfig      `mapstructure:"code" yaml:"code"`
	Config    ConfigSourceConfig       `mapstructure:"config" yaml:"config"`
	Auxiliary []AuxiliaryMappingConfig `mapstructure:"auxiliary" yaml:"auxiliary"`
}

// QuickRunConfig supplies scheduler defaults for node pre-allocation
type QuickRunConfig struct {
	Account                    string   `mapstructure:"account" yaml:"account"`
	ServiceQuality             string   `mapstructure:"service_quality" yaml:"service_quality"`
	Constraint                 string   `mapstructure:"constraint" yaml:"constraint"`
	Partitions                 []string `mapstructure:"partitions" yaml:"partitions"`
	Time                       string   `mapstructure:"time" yaml:"time"`
	CPUCount                   uint16   `mapstructure:"cpu_count" yaml:"cpu_count"`
	GPUCount                   uint16   `mapstructure:"gpu_count" yaml:"gpu_count"`
	FastAccessContainerRequests []string `mapstructure:"fast_access_container_requests" yaml:"fast_access_container_requests"`
	NodeLocalStoragePath       string   `mapstructure:"node_local_storage_path" yaml:"node_local_storage_path"`
}

// RemoteHostConfig describes one Slurm cluster reachable over ssh
type RemoteHostConfig struct {
	Hostname                 string         `mapstructure:"hostname" yaml:"hostname"`
	ScriptRunCommandTemplate string         `mapstructure:"script_run_command_template" yaml:"script_run_command_template"`
	RunOutputBaseDir         string         `mapstructure:"run_output_base_dir" yaml:"run_output_base_dir"`
	TemporaryDir             string         `mapstructure:"temporary_dir" yaml:"temporary_dir"`
	QuickRun                 QuickRunConfig `mapstructure:"quick_run" yaml:"quick_run"`
}

// LocalHostConfig describes execution on the operator's machine
type LocalHostConfig struct {
	RunOutputBaseDir         string `mapstructure:"run_output_base_dir" yaml:"run_output_base_dir"`
	ScriptRunCommandTemplate string `mapstructure:"script_run_command_template" yaml:"script_run_command_template"`
}

// RunnerConfig tunes the runner invocation
type RunnerConfig struct {
	Config                               map[string]string `mapstructure:"config" yaml:"config"`
	EnvironmentVariableTransferRequests []string          `mapstructure:"environment_variable_transfer_requests" yaml:"environment_variable_transfer_requests"`
}

// RunOutputSyncConfig lists the exclude sets for output syncing
type RunOutputSyncConfig struct {
	ResultExcludes    []string `mapstructure:"result_excludes" yaml:"result_excludes"`
	ReproduceExcludes []string `mapstructure:"reproduce_excludes" yaml:"reproduce_excludes"`
}

// RunOutputConfig describes where results land and how they sync
type RunOutputConfig struct {
	SyncOptions RunOutputSyncConfig `mapstructure:"sync_options" yaml:"sync_options"`
	Results     []string            `mapstructure:"results" yaml:"results"`
}

// Load unmarshals the configuration viper has read
func Load(v *viper.Viper) (*GlobalConfig, error) {
	var cfg GlobalConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("could not deserialize configuration").Wrap(err)
	}
	return &cfg, nil
}
