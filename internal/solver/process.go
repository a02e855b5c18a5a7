package solver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/taskgraph"
)

const (
	inputPattern  = "sched_in_*.bin"
	outputPattern = "sched_out_*.bin"
	linePrefix    = "[ENGINE]: "

	defaultWaitDelay = 2 * time.Second
	maxLineBytes     = 1 << 20
)

// ProcessConfig locates the external engine.
type ProcessConfig struct {
	// EnginePath is the executable to run.
	EnginePath string
	// EngineArgs are placed before the input and output paths, e.g. "-jar engine.jar".
	EngineArgs []string
	// Env entries are appended to the parent environment.
	Env []string
	// WorkDir holds the exchange files. Empty means os.TempDir().
	WorkDir string
	// Timeout bounds a single run. Zero disables it.
	Timeout time.Duration
	// WaitDelay is how long to wait for output pipes after the engine is killed.
	WaitDelay time.Duration
}

// LineSink receives engine output lines, already prefixed.
type LineSink func(line string)

type lineSinkKey struct{}

// WithLineSink attaches a sink for engine output to ctx.
func WithLineSink(ctx context.Context, sink LineSink) context.Context {
	return context.WithValue(ctx, lineSinkKey{}, sink)
}

// LineSinkFrom returns the sink attached to ctx, or nil.
func LineSinkFrom(ctx context.Context) LineSink {
	sink, _ := ctx.Value(lineSinkKey{}).(LineSink)
	return sink
}

// ProcessSolver runs the engine as a child process exchanging binary files.
type ProcessSolver struct {
	cfg    ProcessConfig
	logger *zap.Logger
}

// NewProcessSolver constructs a ProcessSolver.
func NewProcessSolver(cfg ProcessConfig, logger *zap.Logger) *ProcessSolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = defaultWaitDelay
	}
	return &ProcessSolver{cfg: cfg, logger: logger}
}

// Solve serializes tasks, runs the engine and collects its placements.
// Both exchange files are removed before Solve returns.
func (s *ProcessSolver) Solve(ctx context.Context, tasks []taskgraph.TaskData, progress ProgressFunc) (Solution, error) {
	progress.Report(PhaseValidating, 40, fmt.Sprintf("validating %d tasks", len(tasks)))
	if len(tasks) == 0 {
		return nil, emptyProblem()
	}
	if s.cfg.EnginePath == "" {
		return nil, launchFailed(errors.New("engine path not configured"))
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	progress.Report(PhaseSerializing, 45, "serializing tasks")
	files, err := s.prepare(EncodeInput(tasks))
	if err != nil {
		return nil, launchFailed(err)
	}
	defer files.cleanup(s.logger)

	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	runCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	progress.Report(PhaseRunning, 50, "engine running")
	if err := s.run(runCtx, files, LineSinkFrom(ctx)); err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, cancelled(ctx.Err())
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			return nil, exitFailed(fmt.Errorf("engine timed out after %s: %w", s.cfg.Timeout, err))
		}
		return nil, err
	}

	progress.Report(PhaseCollecting, 90, "reading engine output")
	return s.collect(files.output)
}

type exchangeFiles struct {
	input  string
	output string
}

func (s *ProcessSolver) prepare(payload []byte) (exchangeFiles, error) {
	var files exchangeFiles
	dir := s.cfg.WorkDir
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return files, fmt.Errorf("create work dir: %w", err)
		}
	}

	in, err := os.CreateTemp(dir, inputPattern)
	if err != nil {
		return files, fmt.Errorf("create input file: %w", err)
	}
	files.input = in.Name()
	if _, err := in.Write(payload); err != nil {
		in.Close()
		files.cleanup(s.logger)
		return exchangeFiles{}, fmt.Errorf("write input file: %w", err)
	}
	if err := in.Close(); err != nil {
		files.cleanup(s.logger)
		return exchangeFiles{}, fmt.Errorf("close input file: %w", err)
	}

	out, err := os.CreateTemp(dir, outputPattern)
	if err != nil {
		files.cleanup(s.logger)
		return exchangeFiles{}, fmt.Errorf("reserve output file: %w", err)
	}
	files.output = out.Name()
	_ = out.Close()
	return files, nil
}

func (f exchangeFiles) cleanup(logger *zap.Logger) {
	for _, path := range []string{f.input, f.output} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("failed to remove engine exchange file", zap.String("path", path), zap.Error(err))
		}
	}
}

func (s *ProcessSolver) run(ctx context.Context, files exchangeFiles, sink LineSink) error {
	args := make([]string, 0, len(s.cfg.EngineArgs)+2)
	args = append(args, s.cfg.EngineArgs...)
	args = append(args, files.input, files.output)

	cmd := exec.CommandContext(ctx, s.cfg.EnginePath, args...)
	cmd.Env = append(os.Environ(), s.cfg.Env...)
	cmd.WaitDelay = s.cfg.WaitDelay

	reader, writer, err := os.Pipe()
	if err != nil {
		return launchFailed(err)
	}
	defer reader.Close()
	cmd.Stdout = writer
	cmd.Stderr = writer

	start := time.Now()
	if err := cmd.Start(); err != nil {
		writer.Close()
		return launchFailed(err)
	}
	writer.Close()
	s.logger.Info("engine started",
		zap.String("engine", filepath.Base(s.cfg.EnginePath)),
		zap.Int("pid", cmd.Process.Pid),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(reader)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			s.logger.Info("engine output", zap.String("line", scanner.Text()))
			if sink != nil {
				sink(linePrefix + scanner.Text())
			}
		}
	}()

	waitErr := cmd.Wait()
	select {
	case <-done:
	case <-time.After(s.cfg.WaitDelay):
		// A grandchild still holds the pipe open.
		reader.Close()
		<-done
	}

	s.logger.Info("engine finished",
		zap.Int("exit_code", cmd.ProcessState.ExitCode()),
		zap.Duration("elapsed", time.Since(start)),
	)
	if waitErr != nil {
		return exitFailed(waitErr)
	}
	return nil
}

func (s *ProcessSolver) collect(path string) (Solution, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, noOutput(err, "engine produced no output file")
	case err != nil:
		return nil, noOutput(err, "failed to read engine output")
	case len(data) == 0:
		return nil, noOutput(nil, "engine produced an empty output file")
	}

	out, err := DecodeOutput(data)
	if err != nil {
		return nil, noOutput(err, "engine output could not be decoded")
	}
	if !out.Success {
		message := out.Message
		if message == "" {
			message = "timetable engine found no solution"
		}
		return nil, rejected(message)
	}
	if len(out.Placements) == 0 {
		return nil, noOutput(nil, "")
	}
	return out.Placements, nil
}
