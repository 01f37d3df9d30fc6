package safety

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

// ExecSandbox runs a candidate through an external command in a scratch
// directory with a cleared environment. The command receives the candidate
// file path as its last argument; a zero exit accepts, anything else
// rejects. The process group is killed when the deadline passes so a
// hanging candidate cannot hold the compile open.
type ExecSandbox struct {
	// Command is the executable and fixed leading arguments, for example
	// {"go", "vet"}.
	Command []string
}

// NewExecSandbox builds a sandbox around the given command line.
func NewExecSandbox(command []string) *ExecSandbox {
	return &ExecSandbox{Command: command}
}

func (s *ExecSandbox) RunIsolated(ctx context.Context, code string, limits Limits) Verdict {
	if len(s.Command) == 0 {
		return Reject("sandbox has no command configured")
	}
	if limits.Timeout <= 0 {
		limits = DefaultLimits
	}

	dir, err := os.MkdirTemp("", "sf-sandbox-")
	if err != nil {
		return Reject(fmt.Sprintf("create scratch dir: %v", err))
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "candidate.go")
	if err := os.WriteFile(path, []byte(WrapFragment(code)), 0o600); err != nil {
		return Reject(fmt.Sprintf("write candidate: %v", err))
	}

	ctx, cancel := context.WithTimeout(ctx, limits.Timeout)
	defer cancel()

	args := append(append([]string{}, s.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, s.Command[0], args...)
	cmd.Dir = dir
	// Candidates see nothing of the caller's environment. PATH survives so
	// the runner itself can resolve; HOME points into the scratch dir.
	cmd.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + dir,
		"TMPDIR=" + dir,
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return Reject(fmt.Sprintf("sandbox run exceeded %s", limits.Timeout))
	}
	if err != nil {
		msg := firstLine(string(out))
		if msg == "" {
			msg = err.Error()
		}
		return Reject(fmt.Sprintf("sandbox run failed: %s", msg))
	}
	return Accept()
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
