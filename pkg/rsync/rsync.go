// Package rsync wraps directional file synchronization around the
// external rsync binary. It only composes arguments and reports the
// tool's exit status; all change detection is rsync's, forced to
// checksum mode so results stay correct across machines with clock
// skew.
package rsync

import (
	"os"
	"os/exec"
	"strings"

	"github.com/jackerschott/sparrow/pkg/errors"
)

// remoteHostAlias stands in for the remote host name in rsync's
// source/destination arguments. The actual target is fixed by the ssh
// control socket passed via --rsh, so the name is never resolved.
const remoteHostAlias = "none"

// Payload is the closed set of transfer directions.
type Payload interface {
	isPayload()
}

// LocalToRemote pushes local sources to a path on the remote host,
// multiplexed over an existing ssh control channel.
type LocalToRemote struct {
	ControlPath string
	Sources     []string
	Destination string
}

// RemoteToLocal pulls a remote path into a local destination,
// multiplexed over an existing ssh control channel.
type RemoteToLocal struct {
	ControlPath string
	Source      string
	Destination string
}

// LocalToLocal copies between two local paths.
type LocalToLocal struct {
	Sources     []string
	Destination string
}

func (LocalToRemote) isPayload() {}
func (RemoteToLocal) isPayload() {}
func (LocalToLocal) isPayload()  {}

// Args renders the argument vector Sync would hand to rsync, for
// callers that need to inspect or log the invocation.
func Args(payload Payload, opts ...Option) []string {
	return buildArgs(payload, evalOptions(opts))
}

// Sync runs one rsync invocation for the given payload. A non-zero
// exit is always reported; callers decide whether it is fatal.
func Sync(payload Payload, opts ...Option) error {
	args := Args(payload, opts...)

	cmd := exec.Command("rsync", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Newf("rsync %s", strings.Join(args, " ")).
			Wrap(errors.ErrExternalTool.Wrap(err))
	}
	return nil
}

// CopyDirectory is the local-to-local convenience used for staging
func CopyDirectory(source, destination string, opts ...Option) error {
	return Sync(LocalToLocal{Sources: []string{source}, Destination: destination}, opts...)
}

func buildArgs(payload Payload, o options) []string {
	args := []string{"--recursive", "--checksum"}

	if o.resolveSymlinks {
		args = append(args, "--copy-links")
	} else {
		args = append(args, "--links")
	}

	if o.quiet {
		args = append(args, "--quiet")
	}

	if o.delete {
		args = append(args, "--delete")
	}

	if o.createMissingPathComponents {
		args = append(args, "--mkpath")
	}

	if o.progress {
		args = append(args, "--progress")
	}

	if len(o.infos) > 0 {
		args = append(args, "--info="+strings.Join(o.infos, ","))
	}

	for _, exclude := range o.excludes {
		args = append(args, "--exclude="+exclude)
	}

	// Whether a source means "the directory" or "the directory's
	// contents" is decided by an explicit option, never inferred from
	// the path string; a trailing slash flips rsync's behavior and
	// silently inferring it is a classic overwrite bug.
	source := func(path string) string {
		if o.copyContents {
			return strings.TrimRight(path, "/") + "/"
		}
		return strings.TrimRight(path, "/")
	}

	switch p := payload.(type) {
	case LocalToRemote:
		args = append(args, "--rsh=ssh -S "+p.ControlPath)
		for _, src := range p.Sources {
			args = append(args, source(src))
		}
		args = append(args, remoteHostAlias+":"+p.Destination)
	case RemoteToLocal:
		args = append(args, "--rsh=ssh -S "+p.ControlPath)
		args = append(args, remoteHostAlias+":"+source(p.Source))
		args = append(args, p.Destination)
	case LocalToLocal:
		for _, src := range p.Sources {
			args = append(args, source(src))
		}
		args = append(args, p.Destination)
	}

	return args
}
