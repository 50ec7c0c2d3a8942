package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/AnyUserName/jpeg2png/internal/config"
	"github.com/AnyUserName/jpeg2png/internal/convert"
	"github.com/AnyUserName/jpeg2png/internal/pipeline"
	"github.com/AnyUserName/jpeg2png/internal/profile"
	"github.com/AnyUserName/jpeg2png/internal/report"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file|dir|file://uri>...",
	Short: "Convert JPEG files to PNG",
	Long: `Converts each argument to PNG. Directories are scanned recursively for
.jpg/.jpeg files (hidden directories are skipped).

Without --out each PNG is written next to its source with the extension
replaced. With --out, outputs go to <out>/<relative path>.png.

Prints one line per input:
  path -> OK (WxH)
  path -> FAILED (<kind>: message)

Two inputs that map to the same PNG (photo.jpg and photo.jpeg) are not
merged: the first wins and the others fail with WriteError.

Exits non-zero when any input failed. The first Ctrl+C stops conversions
that have not started decoding, the second aborts the ones in flight.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	addConvertFlags(convertCmd)
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	return convertPaths(cmd, cfg, logger, args)
}

// convertPaths plans, runs and reports one batch for args.
func convertPaths(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, args []string) error {
	fsys := afero.NewOsFs()
	prof := profile.Get(cfg.Profile)

	reqs, err := pipeline.Plan(fsys, args, cfg.OutDir)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		return fmt.Errorf("no JPEG files found in %s", strings.Join(args, ", "))
	}

	logger.Debug("convert",
		"inputs", len(reqs), "workers", cfg.Workers, "profile", prof.Name,
		"out_dir", cfg.OutDir, "overwrite", cfg.Overwrite)

	engine := convert.New(convert.Options{
		Fs:        fsys,
		Profile:   prof,
		Overwrite: cfg.Overwrite,
		Logger:    logger,
	})

	ctx, abort := context.WithCancel(cmd.Context())
	defer abort()

	batch, err := pipeline.NewCoordinator(engine, logger).Submit(ctx, reqs, cfg.Workers)
	if err != nil {
		return err
	}
	defer batch.Close()

	stop := handleInterrupts(batch, abort, logger)
	defer stop()

	out := cmd.OutOrStdout()
	for res := range batch.Results() {
		printResult(out, res)
	}
	br := batch.Await()
	printSummary(cmd.ErrOrStderr(), br)

	if cfg.Report != "" {
		rep := report.FromBatch(br, prof.Name, batch.Workers())
		if err := rep.Relativize(filepath.Dir(cfg.Report)); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if err := report.WriteJSON(fsys, rep, cfg.Report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Info("report written", "path", cfg.Report)
	}

	if br.HasFailures() {
		return fmt.Errorf("%d of %d conversions did not succeed", br.Failed+br.Cancelled, br.Total())
	}
	return nil
}

// handleInterrupts cancels batch on the first SIGINT or SIGTERM and calls
// abort on the second. The returned func stops listening.
func handleInterrupts(batch *pipeline.Batch, abort context.CancelFunc, logger *slog.Logger) (stop func()) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	quit := make(chan struct{})

	go func() {
		select {
		case <-sigs:
		case <-quit:
			return
		}
		logger.Warn("interrupted, finishing conversions in flight (interrupt again to abort)", "batch", batch.ID())
		batch.Cancel()

		select {
		case <-sigs:
		case <-quit:
			return
		}
		logger.Warn("interrupted again, aborting", "batch", batch.ID())
		abort()
	}()

	return func() {
		signal.Stop(sigs)
		close(quit)
	}
}

func printResult(w io.Writer, res convert.Result) {
	if res.OK() {
		fmt.Fprintf(w, "%s -> OK (%dx%d)\n", res.Source, res.Width, res.Height)
		return
	}
	fmt.Fprintf(w, "%s -> FAILED (%s: %s)\n", res.Source, res.Kind(), res.Message())
}

func printSummary(w io.Writer, br pipeline.Report) {
	var written int64
	for _, res := range br.Results {
		written += res.Size
	}
	fmt.Fprintf(w, "\n  Converted: %d / %d\n", br.Succeeded, br.Total())
	if br.Failed > 0 {
		fmt.Fprintf(w, "  Failed:    %d\n", br.Failed)
	}
	if br.Cancelled > 0 {
		fmt.Fprintf(w, "  Cancelled: %d\n", br.Cancelled)
	}
	fmt.Fprintf(w, "  Written:   %s\n", humanize.Bytes(uint64(written)))
	fmt.Fprintf(w, "  Time:      %s\n\n", br.Elapsed.Round(time.Millisecond))
}
