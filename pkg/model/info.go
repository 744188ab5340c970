package model

// HostInfo is the serializable description of the host a run targets
type HostInfo struct {
	ID                      string `json:"id" yaml:"id"`
	Hostname                string `json:"hostname" yaml:"hostname"`
	RunOutputBaseDirPath    string `json:"run_output_base_dir_path" yaml:"run_output_base_dir_path"`
	IsLocal                 bool   `json:"is_local" yaml:"is_local"`
	IsConfiguredForQuickRun bool   `json:"is_configured_for_quick_run" yaml:"is_configured_for_quick_run"`
}

// RunnerInfo is the serializable description of the runner invocation
type RunnerInfo struct {
	Cmdline string            `json:"cmdline" yaml:"cmdline"`
	Config  map[string]string `json:"config" yaml:"config"`
}

// PayloadInfo is the serializable description of the resolved payload
type PayloadInfo struct {
	CodeVersions  []CodeVersion `json:"code_versions" yaml:"code_versions"`
	ConfigDirPath string        `json:"config_dir_path" yaml:"config_dir_path"`
}

// RunInfo is the full context handed to the run-script template
type RunInfo struct {
	ID         RunID       `json:"id" yaml:"id"`
	Host       HostInfo    `json:"host" yaml:"host"`
	Runner     RunnerInfo  `json:"runner" yaml:"runner"`
	Payload    PayloadInfo `json:"payload" yaml:"payload"`
	OutputPath string      `json:"output_path" yaml:"output_path"`
}

// RunOutputSyncOptions controls pulling a run's output tree back to the
// local machine.
type RunOutputSyncOptions struct {
	Excludes []string

	// IgnoreFromRemoteMarker skips the anti-clobber check on the local
	// destination directory.
	IgnoreFromRemoteMarker bool
}
