package runner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jackerschott/sparrow/pkg/host"
)

// tmuxWrap nests cmd into a fresh tmux session named after the run.
// The trailing bash keeps the session alive after the command finishes
// so its output stays inspectable.
func tmuxWrap(session, cmd string) string {
	return fmt.Sprintf("exec tmux new-session -s '%s' '%s; bash'",
		host.EscapeSingleQuotes(session),
		host.EscapeSingleQuotes(cmd))
}

// environmentPrefix renders the captured environment transfers as a
// `K='v' ` assignment prefix. Sorted for a deterministic command line.
func environmentPrefix(env map[string]string) string {
	if len(env) == 0 {
		return ""
	}

	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s='%s' ", name, host.EscapeSingleQuotes(env[name]))
	}
	return b.String()
}
