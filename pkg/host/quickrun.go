package host

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jackerschott/sparrow/pkg/errors"
	"go.uber.org/zap"
)

// QuickRunTowelJobName is the scheduler job name of the node-holding
// allocation. Status probes and cancellation select the job by this
// name.
const QuickRunTowelJobName = "quick-run-towel"

// readySentinel is printed by the towel job script once the node is
// provisioned and about to park. Reading it from the job's output is
// the only ready signal the protocol has.
const readySentinel = "Going to sleep..."

const (
	outputChunkCountMax = 10000
	outputChunkSize     = 1000
)

type allocationState int

const (
	allocationUnallocated allocationState = iota
	allocationSubmitting
	allocationAwaitingReadySignal
	allocationAllocated
	allocationDeallocating
)

func (s allocationState) String() string {
	switch s {
	case allocationUnallocated:
		return "unallocated"
	case allocationSubmitting:
		return "submitting"
	case allocationAwaitingReadySignal:
		return "awaiting ready signal"
	case allocationAllocated:
		return "allocated"
	case allocationDeallocating:
		return "deallocating"
	}
	return "unknown"
}

// QuickRunController drives the node pre-allocation protocol: submit a
// named parking job through salloc, stream its output until the ready
// sentinel appears, then drop the local session and leave the job
// holding the node.
type QuickRunController struct {
	session CommandSession
	state   allocationState
	log     *zap.Logger
}

// NewQuickRunController builds a controller over an established command
// session
func NewQuickRunController(session CommandSession, log *zap.Logger) *QuickRunController {
	return &QuickRunController{session: session, state: allocationUnallocated, log: log}
}

// Allocate submits the towel job and blocks until the node is
// provisioned. The scheduler queue wait happens inside this call; the
// attached terminal shows salloc's own progress messages on stderr.
func (c *QuickRunController) Allocate(opts QuickRunPrepOptions) error {
	c.state = allocationSubmitting
	script := buildTowelJobScript(opts.FastAccessContainerPaths, opts.NodeLocalStoragePath)

	process, err := c.submitTowelJob(towelJobSubmissionOptions(opts))
	if err != nil {
		c.state = allocationUnallocated
		return err
	}

	if _, err := io.WriteString(process.Stdin(), script); err != nil {
		_ = process.Disconnect()
		c.state = allocationUnallocated
		return errors.New("could not send the towel job script").Wrap(err)
	}
	if err := process.Stdin().Close(); err != nil {
		_ = process.Disconnect()
		c.state = allocationUnallocated
		return errors.New("could not send the towel job script").Wrap(err)
	}

	c.state = allocationAwaitingReadySignal
	if err := awaitReadySignal(process.Stdout(), os.Stderr); err != nil {
		_ = process.Disconnect()
		c.state = allocationUnallocated
		return err
	}

	// the job keeps the node; only the local ssh side goes away
	if err := process.Disconnect(); err != nil {
		return err
	}
	c.state = allocationAllocated
	c.log.Debug("towel job holds a node", zap.String("job_name", QuickRunTowelJobName))
	return nil
}

// IsAllocated asks the scheduler whether the towel job is running. The
// probe goes through a remote shell so $USER expands on the cluster.
func (c *QuickRunController) IsAllocated() (bool, error) {
	out, err := c.session.Command("bash", "-c", fmt.Sprintf(
		"squeue --noheader --format %%t --user $USER --name %s", QuickRunTowelJobName)).Output()
	if err != nil {
		return false, errors.New("could not query the scheduler for the towel job").Wrap(err)
	}

	allocated := strings.TrimSpace(string(out)) == "R"
	if allocated {
		c.state = allocationAllocated
	}
	return allocated, nil
}

// Deallocate cancels the towel job by name. A failed cancellation
// leaves the allocation state unknown on the cluster side, which is why
// the error insists on manual verification.
func (c *QuickRunController) Deallocate() error {
	c.state = allocationDeallocating
	if err := c.session.Command("scancel", "--name", QuickRunTowelJobName).Status(); err != nil {
		return errors.Newf("could not cancel the towel job, "+
			"verify with squeue whether a node named %s is still held", QuickRunTowelJobName).Wrap(err)
	}
	c.state = allocationUnallocated
	return nil
}

// submitTowelJob spawns salloc reading the job script from stdin. The
// inner `bash -` runs on the allocated node once the scheduler grants
// it.
func (c *QuickRunController) submitTowelJob(submissionOpts []string) (RemoteProcess, error) {
	args := append(submissionOpts, "--", "bash", "-c", "bash -")
	cmd := c.session.Command("salloc", args...)
	process, err := cmd.Spawn()
	if err != nil {
		return nil, errors.New("could not submit the towel job").Wrap(err)
	}
	return process, nil
}

func towelJobSubmissionOptions(opts QuickRunPrepOptions) []string {
	args := []string{
		"--job-name", QuickRunTowelJobName,
		"--nodes", "1-1",
		"--account", opts.Account,
		"--time", opts.Time,
		"--cpus-per-task", strconv.Itoa(int(opts.CPUCount)),
	}
	if opts.ServiceQuality != "" {
		args = append(args, "--qos", opts.ServiceQuality)
	}
	if opts.Constraint != "" {
		args = append(args, "--constraint", opts.Constraint)
	}
	if len(opts.Partitions) > 0 {
		args = append(args, "--partition", strings.Join(opts.Partitions, ","))
	}
	if opts.GPUCount > 0 {
		args = append(args, "--gpus", strconv.Itoa(int(opts.GPUCount)))
	}
	return args
}

// buildTowelJobScript renders the script the towel job runs on the
// node: copy the requested containers to node-local storage, announce
// readiness, then park for a day. The trailing slash on the destination
// forces directory semantics even when the storage dir does not exist
// yet.
func buildTowelJobScript(fastAccessContainerPaths []string, nodeLocalStoragePath string) string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	for _, containerPath := range fastAccessContainerPaths {
		fmt.Fprintf(&b, "rsync --recursive --checksum --progress %s %s/\n",
			containerPath, strings.TrimRight(nodeLocalStoragePath, "/"))
	}
	fmt.Fprintf(&b, "printf \"%s\"\n", readySentinel)
	b.WriteString("sleep 1d\n")
	return b.String()
}

// awaitReadySignal reads the job's output in bounded chunks until the
// ready sentinel appears, echoing everything to echo so the operator
// sees salloc's queue progress while blocked. The bound keeps a
// misbehaving job script from wedging the submission forever.
func awaitReadySignal(stdout io.Reader, echo io.Writer) error {
	var seen strings.Builder
	chunk := make([]byte, outputChunkSize)
	for i := 0; i < outputChunkCountMax; i++ {
		n, err := stdout.Read(chunk)
		if n > 0 {
			_, _ = echo.Write(chunk[:n])
			seen.Write(chunk[:n])
			if strings.Contains(seen.String(), readySentinel) {
				return nil
			}
		}
		if err == io.EOF {
			return errors.New("the towel job exited before signalling readiness").
				Wrap(errors.ErrExternalTool)
		}
		if err != nil {
			return errors.New("could not read the towel job output").Wrap(err)
		}
	}
	return errors.Newf("no ready signal after %d output chunks",
		outputChunkCountMax).Wrap(errors.ErrProtocolExhausted)
}
