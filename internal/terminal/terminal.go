// Package terminal implements the operator console: reads a line,
// resolves it against the fixed command table, and dispatches subject
// to the caller's role.
package terminal

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/ipc"
	"github.com/ChuLiYu/warehouse-ipc/internal/session"
)

// pollInterval is how often Run checks for a new line versus the
// facade's cancellation, so shutdown interleaves with input instead of
// blocking on it indefinitely.
const pollInterval = 100 * time.Millisecond

// Terminal drives the operator console against a Facade and session
// Registry.
type Terminal struct {
	facade   *ipc.Facade
	registry *session.Registry
	selfPID  int32
	logger   *zap.Logger
	out      io.Writer
}

// New returns a Terminal identified by selfPID, printing to out.
func New(facade *ipc.Facade, registry *session.Registry, selfPID int32, logger *zap.Logger, out io.Writer) *Terminal {
	return &Terminal{facade: facade, registry: registry, selfPID: selfPID, logger: logger, out: out}
}

// Dispatch resolves and runs a single line, returning the single line
// of output the console prints (unknown tokens and permission denials
// are rendered the same way, as a single printed line, not an error).
func (t *Terminal) Dispatch(line string) (string, error) {
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return "", nil
	}
	fields := strings.Fields(line)
	verb, args := fields[0], fields[1:]

	spec, ok := commandTable[verb]
	if !ok {
		return fmt.Sprintf("unknown command: %s", verb), nil
	}

	role, err := t.registry.CurrentRole(t.selfPID)
	if err != nil {
		return "", err
	}
	if spec.role != 0 && !role.Any(spec.role) {
		return fmt.Sprintf("permission denied: %s requires a higher role", verb), nil
	}

	return spec.run(t, args)
}

// Run reads lines from in until EOF, exit/quit, or the facade is
// cancelled. Each read is polled so a shutdown signal is observed
// within one pollInterval even with no input pending.
func (t *Terminal) Run(in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return <-readErr
			}
			out, err := t.Dispatch(line)
			if out != "" {
				fmt.Fprintln(t.out, out)
			}
			if err != nil {
				if err == errExitRequested {
					return nil
				}
				return err
			}
		case <-t.facade.Cancel.Done():
			return nil
		case <-time.After(pollInterval):
		}
	}
}
