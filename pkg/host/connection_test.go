package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSSHCommandRemoteQuoting(t *testing.T) {
	for _, fixture := range []struct {
		name     string
		program  string
		args     []string
		expected string
	}{
		{
			name:    "scheduler probe keeps its filter flags",
			program: "bash",
			args:    []string{"-c", "squeue --noheader --format %t --user $USER --name quick-run-towel"},
			expected: `'bash' '-c' ` +
				`'squeue --noheader --format %t --user $USER --name quick-run-towel'`,
		},
		{
			name:     "glob pattern is not expanded by the login shell",
			program:  "find",
			args:     []string{"/scratch/results/classify/baseline/logs", "-name", "*.log", "-type", "f"},
			expected: `'find' '/scratch/results/classify/baseline/logs' '-name' '*.log' '-type' 'f'`,
		},
		{
			name:     "path with spaces stays one word",
			program:  "mkdir",
			args:     []string{"-p", "/scratch/run dirs/classify"},
			expected: `'mkdir' '-p' '/scratch/run dirs/classify'`,
		},
		{
			name:     "embedded single quote survives",
			program:  "cat",
			args:     []string{"/scratch/it's.log"},
			expected: `'cat' '/scratch/it'"'"'s.log'`,
		},
	} {
		t.Run(fixture.name, func(t *testing.T) {
			cmd := &sshCommand{
				ctlPath:  "/tmp/ctl/master.sock",
				hostname: "cluster",
				program:  fixture.program,
				args:     fixture.args,
			}
			assert.Equal(t, fixture.expected, cmd.remoteCommandLine())

			built := cmd.build()
			assert.Equal(t, []string{
				"ssh", "-S", "/tmp/ctl/master.sock", "cluster", "--", fixture.expected,
			}, built.Args)
		})
	}
}
