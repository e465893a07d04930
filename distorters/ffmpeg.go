package distorters

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

// waitDelay bounds how long Wait keeps draining pipes after a kill.
const waitDelay = 5 * time.Second

// runCommand runs name in its own process group so a timeout can kill
// everything it spawned. ctx.Err() tells a timeout apart from a plain failure.
func runCommand(ctx context.Context, stdin io.Reader, name string, args ...string) (*bytes.Buffer, *bytes.Buffer, error) {
	var outbuf, errbuf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = waitDelay
	cmd.Stdin = stdin
	cmd.Stdout = &outbuf
	cmd.Stderr = &errbuf
	err := cmd.Run()
	if err != nil {
		err = errors.WithStack(err)
	}
	return &outbuf, &errbuf, err
}
