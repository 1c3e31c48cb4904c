// Package tools invokes the external reconstruction tools (undistortion,
// stereo matching, point cloud filtering, volumetric fusion, texturing) as
// one-shot managed processes.
package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils/pexec"
)

// RunProcess starts a one-shot process and waits for it to exit. Tests swap
// this out to fake tool runs.
var RunProcess = func(ctx context.Context, cfg pexec.ProcessConfig, logger golog.Logger) error {
	proc := pexec.NewManagedProcess(cfg, logger)
	return proc.Start(ctx)
}

// Runner locates and runs tool binaries out of a single directory.
type Runner struct {
	dir    string
	dryRun bool
	logger golog.Logger
}

// NewRunner returns a Runner for binaries under dir. In dry-run mode
// commands are logged but never started.
func NewRunner(dir string, dryRun bool, logger golog.Logger) *Runner {
	return &Runner{dir: dir, dryRun: dryRun, logger: logger}
}

// DefaultDir returns the conventional tool directory, a bin directory next
// to the one holding the running executable.
func DefaultDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "cannot locate the running executable")
	}
	return filepath.Join(filepath.Dir(filepath.Dir(exe)), "bin"), nil
}

// Path returns the full path of the named tool binary.
func (r *Runner) Path(name string) string {
	return filepath.Join(r.dir, name)
}

// DryRun reports whether the runner only logs commands.
func (r *Runner) DryRun() bool {
	return r.dryRun
}

// Run invokes the named tool with the given arguments and blocks until it
// exits. The command line and the tool's output are written to logFile; a
// non-zero exit status is returned as an error.
func (r *Runner) Run(ctx context.Context, name string, args []string, logFile string) (err error) {
	toolPath := r.Path(name)
	cmdStr := FormatCommand(append([]string{toolPath}, args...))
	if r.dryRun {
		r.logger.Infow("dry run", "command", cmdStr)
		return nil
	}
	r.logger.Infow("running tool", "tool", name, "log", logFile)
	r.logger.Debug(cmdStr)

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return errors.Wrap(err, "cannot create log directory")
	}
	//nolint:gosec
	f, err := os.Create(logFile)
	if err != nil {
		return errors.Wrap(err, "cannot create tool log file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if _, err := fmt.Fprintln(f, cmdStr); err != nil {
		return errors.Wrap(err, "cannot write tool log file")
	}

	cfg := pexec.ProcessConfig{
		ID:        name,
		Name:      toolPath,
		Args:      args,
		OneShot:   true,
		Log:       true,
		LogWriter: f,
	}
	if err := RunProcess(ctx, cfg, r.logger); err != nil {
		return errors.Wrapf(err, "failed execution of %s", cmdStr)
	}
	return nil
}

// FormatCommand renders a command and its arguments as one printable line,
// quoting arguments that contain whitespace.
func FormatCommand(cmd []string) string {
	quoted := make([]string, 0, len(cmd))
	for _, val := range cmd {
		if strings.ContainsAny(val, " \t") {
			val = "\"" + val + "\""
		}
		quoted = append(quoted, val)
	}
	return strings.Join(quoted, " ")
}
