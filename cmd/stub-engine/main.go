// Command stub-engine speaks the engine file protocol using the built-in
// greedy placer. It lets the API run end to end without the real engine:
//
//	stub-engine <input.bin> <output.bin>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/solver"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: stub-engine <input> <output>")
		os.Exit(2)
	}

	logr, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logr, os.Args[1], os.Args[2]); err != nil {
		logr.Error("stub engine failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logr *zap.Logger, inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	tasks, err := solver.DecodeInput(data)
	if err != nil {
		return err
	}
	logr.Info("input loaded", zap.Int("tasks", len(tasks)))

	out := solver.Output{Success: true}
	solution, err := solver.GreedySolver{}.Solve(ctx, tasks, func(p solver.Progress) {
		if p.Message != "" {
			logr.Info(p.Message, zap.Int("percent", p.Percent))
		}
	})
	switch {
	case solver.IsCancelled(err):
		return err
	case err != nil:
		out = solver.Output{Success: false, Message: appErrors.FromError(err).Message}
	default:
		out.Placements = solution
		out.Message = fmt.Sprintf("placed %d periods", len(solution))
	}

	if err := os.WriteFile(outputPath, solver.EncodeOutput(out), 0o600); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logr.Info("output written", zap.Bool("success", out.Success), zap.String("message", out.Message))
	return nil
}
