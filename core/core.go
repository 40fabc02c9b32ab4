// Package core has core logic for aggregating coverage, resolving reference builds
// and computing coverage deltas.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/huangsam/covdelta/core/normalize"
	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/internal/iocache"
	"github.com/huangsam/covdelta/internal/metrics"
	"github.com/huangsam/covdelta/internal/outwriter"
	"github.com/huangsam/covdelta/schema"
)

// ExecutorFunc defines the function signature for executing the different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

// Build ids used by the ephemeral compare history.
const (
	compareJob         = "compare"
	compareReferenceID = "compare#1"
	compareCurrentID   = "compare#2"
)

// ExecuteIngest records a build, processes its reports and prints the resulting deltas.
// It serves as the main entry point for the 'ingest' command.
func ExecuteIngest(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	if cfg.BuildID == "" || cfg.Job == "" || cfg.Number <= 0 {
		return errors.New("--build-id (or --job with --number), --job and --number are required")
	}
	if len(cfg.Inputs) == 0 {
		return errors.New("at least one adapter:path report is required")
	}
	history, err := historyFrom(mgr)
	if err != nil {
		return err
	}

	build, err := recordBuild(ctx, history, cfg)
	if err != nil {
		return err
	}

	rec := metrics.New()
	p := processorFor(cfg, history, mgr.GetReportCache(), rec)
	result, err := p.Process(ctx, build, cfg.Inputs)
	if err != nil {
		if !errors.Is(err, schema.ErrResultExists) {
			if finishErr := history.FinishBuild(ctx, build.ID, schema.FailureOutcome, time.Now().UTC()); finishErr != nil {
				slog.Warn("could not mark build as failed", slog.String("build", build.ID), slog.Any("error", finishErr))
			}
		}
		return err
	}
	if cfg.Outcome.IsTerminal() {
		if err := history.FinishBuild(ctx, build.ID, cfg.Outcome, time.Now().UTC()); err != nil {
			return err
		}
	}
	if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
		contract.LogWarn("Failed to write metrics file", err)
	}

	report, err := reportWithReference(ctx, history, result)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteDelta(report, cfg, time.Since(start))
}

// ExecuteDelta prints the stored coverage and deltas of a build.
func ExecuteDelta(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	if cfg.BuildID == "" {
		return errors.New("a build id is required")
	}
	history, err := historyFrom(mgr)
	if err != nil {
		return err
	}
	report, err := GetDeltaReport(ctx, history, cfg.BuildID)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteDelta(report, cfg, time.Since(start))
}

// GetDeltaReport loads the stored result of a build together with its reference result.
func GetDeltaReport(ctx context.Context, history contract.HistoryStore, buildID string) (schema.DeltaReport, error) {
	result, err := history.GetResult(ctx, buildID)
	if err != nil {
		return schema.DeltaReport{}, err
	}
	return reportWithReference(ctx, history, result)
}

// ExecuteCompare compares two sets of reports without touching the configured history.
func ExecuteCompare(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	var cache contract.ReportCache
	if mgr != nil {
		cache = mgr.GetReportCache()
	}
	report, err := CompareReports(ctx, cfg.ReferenceInputs, cfg.CurrentInputs, cache)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteDelta(report, cfg, time.Since(start))
}

// CompareReports computes the deltas between two sets of reports. The reference reports
// become a finished build of an in-memory history and the current reports are resolved
// explicitly against it. The cache is optional.
func CompareReports(ctx context.Context, referenceInputs, currentInputs []schema.ReportInput, cache contract.ReportCache) (schema.DeltaReport, error) {
	if len(referenceInputs) == 0 || len(currentInputs) == 0 {
		return schema.DeltaReport{}, errors.New("--reference and --current each need at least one adapter:path report")
	}

	history := iocache.NewMemoryHistory()
	p := processorFor(&contract.Config{
		Strategy:    schema.ExplicitStrategy,
		ReferenceID: compareReferenceID,
	}, history, cache, nil)

	now := time.Now().UTC()
	reference := schema.BuildRecord{ID: compareReferenceID, Job: compareJob, Number: 1, Outcome: schema.RunningOutcome, StartedAt: now}
	current := schema.BuildRecord{ID: compareCurrentID, Job: compareJob, Number: 2, Outcome: schema.RunningOutcome, StartedAt: now}

	if err := history.CreateBuild(ctx, reference); err != nil {
		return schema.DeltaReport{}, err
	}
	if _, err := p.Process(ctx, reference, referenceInputs); err != nil {
		return schema.DeltaReport{}, fmt.Errorf("reference reports: %w", err)
	}
	if err := history.FinishBuild(ctx, reference.ID, schema.SuccessOutcome, now); err != nil {
		return schema.DeltaReport{}, err
	}

	if err := history.CreateBuild(ctx, current); err != nil {
		return schema.DeltaReport{}, err
	}
	result, err := p.Process(ctx, current, currentInputs)
	if err != nil {
		return schema.DeltaReport{}, fmt.Errorf("current reports: %w", err)
	}
	return reportWithReference(ctx, history, result)
}

// ExecuteReference prints the reference attached to a build and why it was chosen.
func ExecuteReference(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	if cfg.BuildID == "" {
		return errors.New("a build id is required")
	}
	history, err := historyFrom(mgr)
	if err != nil {
		return err
	}
	if _, err := history.GetBuild(ctx, cfg.BuildID); err != nil {
		return err
	}
	ref, err := history.GetReference(ctx, cfg.BuildID)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteReference(cfg.BuildID, ref, cfg)
}

// ExecuteHistoryList prints the most recent builds, optionally for one job.
func ExecuteHistoryList(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	history, err := historyFrom(mgr)
	if err != nil {
		return err
	}
	builds, err := history.ListBuilds(ctx, cfg.Job)
	if err != nil {
		return err
	}
	if cfg.Limit > 0 && len(builds) > cfg.Limit {
		builds = builds[:cfg.Limit]
	}
	return outwriter.NewOutWriter().WriteHistory(builds, cfg)
}

// historyFrom returns the history store of mgr or an error when none is configured.
func historyFrom(mgr contract.StoreManager) (contract.HistoryStore, error) {
	if mgr == nil || mgr.GetHistoryStore() == nil {
		return nil, errors.New("history store is not initialized")
	}
	return mgr.GetHistoryStore(), nil
}

// recordBuild appends the configured build to the history, or returns the existing
// record when the build was already registered by an earlier run.
func recordBuild(ctx context.Context, history contract.HistoryStore, cfg *contract.Config) (schema.BuildRecord, error) {
	existing, err := history.GetBuild(ctx, cfg.BuildID)
	if err == nil {
		if existing.Job != cfg.Job || existing.Number != cfg.Number {
			return schema.BuildRecord{}, fmt.Errorf("build %s is already recorded as %s #%d", cfg.BuildID, existing.Job, existing.Number)
		}
		return existing, nil
	}
	if !errors.Is(err, schema.ErrBuildNotFound) {
		return schema.BuildRecord{}, err
	}

	build := schema.BuildRecord{
		ID:        cfg.BuildID,
		Job:       cfg.Job,
		Number:    cfg.Number,
		Outcome:   schema.RunningOutcome,
		StartedAt: time.Now().UTC(),
	}
	if err := history.CreateBuild(ctx, build); err != nil {
		return schema.BuildRecord{}, err
	}
	return build, nil
}

// processorFor wires a Processor from the command configuration.
func processorFor(cfg *contract.Config, history contract.HistoryStore, cache contract.ReportCache, rec *metrics.Recorder) *Processor {
	return &Processor{
		History:     history,
		Cache:       cache,
		Normalizers: normalize.Default(),
		Resolver: &Resolver{
			History:       history,
			ReferenceID:   cfg.ReferenceID,
			Messages:      cfg.Messages,
			AllowUnstable: cfg.AllowUnstable,
		},
		Strategy: cfg.Strategy,
		Metrics:  rec,
	}
}

// reportWithReference builds the display report, loading the reference result when
// one is attached so that the before column can be filled in.
func reportWithReference(ctx context.Context, history contract.HistoryStore, result *schema.Result) (schema.DeltaReport, error) {
	var reference *schema.Result
	if ref := result.Reference(); ref != nil {
		r, err := history.GetResult(ctx, ref.ReferenceID)
		switch {
		case err == nil:
			reference = r
		case errors.Is(err, schema.ErrResultNotFound):
			slog.Debug("reference result is gone, showing stored deltas only", slog.String("reference", ref.ReferenceID))
		default:
			return schema.DeltaReport{}, err
		}
	}
	return ReportFromResult(result, reference), nil
}
