package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/pexec"
)

func TestFormatCommand(t *testing.T) {
	test.That(t, FormatCommand([]string{"tool", "-a", "b"}), test.ShouldEqual, "tool -a b")
	test.That(t, FormatCommand([]string{"tool", "two words", "c"}),
		test.ShouldEqual, `tool "two words" c`)
	test.That(t, FormatCommand(nil), test.ShouldEqual, "")
}

func TestRunnerRun(t *testing.T) {
	logger := golog.NewTestLogger(t)
	prevRunProcess := RunProcess
	defer func() {
		RunProcess = prevRunProcess
	}()

	var gotCfg pexec.ProcessConfig
	calls := 0
	RunProcess = func(ctx context.Context, cfg pexec.ProcessConfig, _ golog.Logger) error {
		calls++
		gotCfg = cfg
		return nil
	}

	dir := t.TempDir()
	runner := NewRunner("/opt/recon/bin", false, logger)
	logFile := filepath.Join(dir, "logs", "tool_log.txt")
	err := runner.Run(context.Background(), "pc_filter", []string{"--input", "a.tif"}, logFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, calls, test.ShouldEqual, 1)
	test.That(t, gotCfg.ID, test.ShouldEqual, "pc_filter")
	test.That(t, gotCfg.Name, test.ShouldEqual, filepath.Join("/opt/recon/bin", "pc_filter"))
	test.That(t, gotCfg.Args, test.ShouldResemble, []string{"--input", "a.tif"})
	test.That(t, gotCfg.OneShot, test.ShouldBeTrue)

	// the command line is recorded in the log file
	data, err := os.ReadFile(logFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring,
		filepath.Join("/opt/recon/bin", "pc_filter")+" --input a.tif")
}

func TestRunnerFailure(t *testing.T) {
	logger := golog.NewTestLogger(t)
	prevRunProcess := RunProcess
	defer func() {
		RunProcess = prevRunProcess
	}()
	RunProcess = func(ctx context.Context, cfg pexec.ProcessConfig, _ golog.Logger) error {
		return errors.New("exit status 1")
	}

	runner := NewRunner("/bin", false, logger)
	err := runner.Run(context.Background(), "stereo", nil, filepath.Join(t.TempDir(), "log.txt"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed execution of")
	test.That(t, err.Error(), test.ShouldContainSubstring, "exit status 1")
}

func TestRunnerDryRun(t *testing.T) {
	logger := golog.NewTestLogger(t)
	prevRunProcess := RunProcess
	defer func() {
		RunProcess = prevRunProcess
	}()
	RunProcess = func(ctx context.Context, cfg pexec.ProcessConfig, _ golog.Logger) error {
		t.Fatal("process started during dry run")
		return nil
	}

	logFile := filepath.Join(t.TempDir(), "log.txt")
	runner := NewRunner("/bin", true, logger)
	test.That(t, runner.DryRun(), test.ShouldBeTrue)
	err := runner.Run(context.Background(), "stereo", []string{"-x"}, logFile)
	test.That(t, err, test.ShouldBeNil)

	// nothing ran, nothing was logged to disk
	_, err = os.Stat(logFile)
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
}
