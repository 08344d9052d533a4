// Package recovery executes the configured self-heal action, typically
// "systemctl restart <unit>". The command runs once per escalation; retry
// policy belongs to the escalation service, not here.
package recovery

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
)

const commandTimeout = 30 * time.Second

// CommandRunner shells out to a fixed command line set at construction.
type CommandRunner struct {
	name   string
	args   []string
	logger *logging.Logger
}

// NewCommandRunner parses a space-separated command line. An empty command
// yields a nil runner, which the caller treats as "no recovery configured".
func NewCommandRunner(commandLine string, logger *logging.Logger) *CommandRunner {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CommandRunner{
		name:   fields[0],
		args:   fields[1:],
		logger: logger,
	}
}

func (r *CommandRunner) Restart(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.name, r.args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("restart command %q: %w (output: %s)", r.name, err, strings.TrimSpace(string(output)))
	}

	r.logger.InfoContext(ctx, "restart command completed",
		"command", r.name,
		"exit_code", cmd.ProcessState.ExitCode(),
	)
	return nil
}
