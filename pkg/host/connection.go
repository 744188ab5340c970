package host

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jackerschott/sparrow/pkg/errors"
	"github.com/jackerschott/sparrow/pkg/rsync"
	"go.uber.org/zap"
)

// CommandSession is the remote command-execution surface a Connection
// provides. The quick-run controller and tests depend on this rather
// than the concrete Connection.
type CommandSession interface {
	Command(program string, args ...string) RemoteCommand
}

// RemoteCommand is one remote invocation, driven to completion from
// synchronous call sites.
type RemoteCommand interface {
	// Output runs the command and captures its stdout; stderr goes to
	// the operator's terminal
	Output() ([]byte, error)

	// Status runs the command with the terminal attached and reports a
	// non-zero exit as an error
	Status() error

	// Spawn starts the command with piped stdin/stdout for streaming
	Spawn() (RemoteProcess, error)

	String() string
}

// RemoteProcess is a spawned remote command with live pipes.
type RemoteProcess interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader

	// Disconnect drops the local side of the session without touching
	// whatever keeps running on the remote host
	Disconnect() error
}

// Connection owns exactly one multiplexed ssh session to a remote
// host, backed by an OpenSSH control master. Commands, uploads and
// downloads all reuse the already-authenticated channel; rsync is
// pointed at the control socket via --rsh so it never re-authenticates.
//
// Connectivity is a precondition, not a recoverable runtime condition:
// construction fails hard and callers are expected to abort.
type Connection struct {
	hostname string
	ctlDir   string
	ctlPath  string
	log      *zap.Logger
}

// Connect establishes the control master for hostname. The ssh client
// resolves hostname through the operator's ssh configuration; any
// authentication dialog runs on the attached terminal.
func Connect(hostname string, log *zap.Logger) (*Connection, error) {
	ctlDir, err := os.MkdirTemp("", "sparrow-ctl-")
	if err != nil {
		return nil, errors.New("could not create control socket directory").Wrap(err)
	}
	ctlPath := filepath.Join(ctlDir, "master.sock")

	cmd := exec.Command("ssh",
		"-f", "-N", "-M",
		"-S", ctlPath,
		"-o", "ControlPersist=yes",
		hostname,
	)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		_ = os.RemoveAll(ctlDir)
		return nil, errors.Newf("failed to connect to host %s", hostname).
			Wrap(errors.ErrConnectivity.Wrap(err))
	}

	log.Debug("established ssh control master",
		zap.String("hostname", hostname), zap.String("control_path", ctlPath))
	return &Connection{hostname: hostname, ctlDir: ctlDir, ctlPath: ctlPath, log: log}, nil
}

// Hostname the connection targets
func (c *Connection) Hostname() string {
	return c.hostname
}

// ControlPath of the underlying control master socket
func (c *Connection) ControlPath() string {
	return c.ctlPath
}

// Upload pushes a local path to the remote host over the session
func (c *Connection) Upload(localPath, remotePath string, opts ...rsync.Option) error {
	return rsync.Sync(rsync.LocalToRemote{
		ControlPath: c.ctlPath,
		Sources:     []string{localPath},
		Destination: remotePath,
	}, opts...)
}

// Download pulls a remote path to the local machine over the session
func (c *Connection) Download(remotePath, localPath string, opts ...rsync.Option) error {
	return rsync.Sync(rsync.RemoteToLocal{
		ControlPath: c.ctlPath,
		Source:      remotePath,
		Destination: localPath,
	}, opts...)
}

// Command builds a remote invocation of program
func (c *Connection) Command(program string, args ...string) RemoteCommand {
	return &sshCommand{
		ctlPath:  c.ctlPath,
		hostname: c.hostname,
		program:  program,
		args:     args,
	}
}

// Close tears the control master down. In-flight remote state (a
// submitted scheduler job, say) is deliberately left alone.
func (c *Connection) Close() error {
	cmd := exec.Command("ssh", "-S", c.ctlPath, "-O", "exit", c.hostname)
	err := cmd.Run()
	_ = os.RemoveAll(c.ctlDir)
	if err != nil {
		return errors.Newf("failed to close the session to %s", c.hostname).Wrap(err)
	}
	return nil
}

type sshCommand struct {
	ctlPath  string
	hostname string
	program  string
	args     []string
}

func (s *sshCommand) build() *exec.Cmd {
	return exec.Command("ssh", "-S", s.ctlPath, s.hostname, "--", s.remoteCommandLine())
}

// remoteCommandLine single-quotes every word of the invocation. The ssh
// client joins its trailing arguments with spaces and hands the result
// to the remote login shell, so unquoted words would be re-split,
// glob-expanded and variable-expanded there. Quoting keeps each word
// intact; expansions like $USER still happen where they belong, inside
// an explicit `bash -c` command string.
func (s *sshCommand) remoteCommandLine() string {
	words := make([]string, 0, len(s.args)+1)
	for _, word := range append([]string{s.program}, s.args...) {
		words = append(words, "'"+EscapeSingleQuotes(word)+"'")
	}
	return strings.Join(words, " ")
}

func (s *sshCommand) String() string {
	return s.remoteCommandLine()
}

func (s *sshCommand) Output() ([]byte, error) {
	cmd := s.build()
	cmd.Stderr = os.Stderr
	out, err := cmd.Output()
	if err != nil {
		return out, errors.Newf("failed to run `%s' on %s", s, s.hostname).
			Wrap(errors.ErrExternalTool.Wrap(err))
	}
	return out, nil
}

func (s *sshCommand) Status() error {
	cmd := s.build()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Newf("failed to run `%s' on %s", s, s.hostname).
			Wrap(errors.ErrExternalTool.Wrap(err))
	}
	return nil
}

func (s *sshCommand) Spawn() (RemoteProcess, error) {
	cmd := s.build()
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Newf("failed to open stdin of `%s'", s).Wrap(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Newf("failed to open stdout of `%s'", s).Wrap(err)
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, errors.Newf("failed to spawn `%s' on %s", s, s.hostname).
			Wrap(errors.ErrExternalTool.Wrap(err))
	}
	return &sshProcess{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

type sshProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (p *sshProcess) Stdin() io.WriteCloser {
	return p.stdin
}

func (p *sshProcess) Stdout() io.Reader {
	return p.stdout
}

func (p *sshProcess) Disconnect() error {
	// killing the local ssh leaves the remote side to the scheduler
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.cmd.Wait()
	return nil
}
