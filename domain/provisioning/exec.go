package provisioning

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

const (
	defaultExecTimeout = 30 * time.Second
	maxExecTimeout     = 300 * time.Second
)

// RunWithTimeout runs an external sandbox-creation/runtime-start command
// with a clamped timeout: requested durations are bounded to
// [0, maxExecTimeout], and a non-positive or zero requested timeout falls
// back to defaultExecTimeout. This guards creating_sandbox/starting_runtime
// steps against a hung subprocess outliving the job's own step timeout.
func RunWithTimeout(ctx context.Context, requested time.Duration, name string, args ...string) (stdout, stderr []byte, err error) {
	timeout := requested
	if timeout <= 0 {
		timeout = defaultExecTimeout
	}
	if timeout > maxExecTimeout {
		timeout = maxExecTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}
