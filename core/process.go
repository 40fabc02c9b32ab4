package core

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/huangsam/covdelta/core/normalize"
	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/internal/metrics"
	"github.com/huangsam/covdelta/schema"
)

// currentCacheVersion defines the version of the cached tree encoding.
const currentCacheVersion = 1

// cacheMaxAge bounds how long a normalized report is reused.
const cacheMaxAge = 7 * 24 * time.Hour

// IngestError reports a report that one adapter could not turn into a valid tree.
type IngestError struct {
	Adapter string
	Path    string
	Err     error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("%s report %s: %v", e.Adapter, e.Path, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// Processor drives one build through the coverage lifecycle: normalize, aggregate,
// resolve the reference, compute deltas, then persist the finalized result.
type Processor struct {
	History     contract.HistoryStore
	Cache       contract.ReportCache // optional
	Normalizers *normalize.Registry
	Resolver    *Resolver
	Strategy    schema.Strategy
	Metrics     *metrics.Recorder // optional
	Logger      *slog.Logger
}

// Process computes and stores the result of build from its reports. Every failing
// report is returned as an *IngestError joined with the others; any ingest or merge
// failure aborts the build and nothing is stored. A build whose result is already
// finalized is never recomputed.
func (p *Processor) Process(ctx context.Context, build schema.BuildRecord, inputs []schema.ReportInput) (*schema.Result, error) {
	log := p.logger().With(slog.String("build", build.ID))

	done, err := p.History.HasResult(ctx, build.ID)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, fmt.Errorf("build %s: %w", build.ID, schema.ErrResultExists)
	}

	trees, err := p.ingest(ctx, inputs)
	if err != nil {
		return nil, err
	}
	log.Debug("reports ingested", slog.Int("reports", len(trees)), slog.String("state", string(schema.RawReportsIngestedState)))

	result, err := NewResult(build.ID, trees...)
	if err != nil {
		var conflict *schema.MergeConflictError
		if errors.As(err, &conflict) {
			p.Metrics.IncMergeConflict()
		}
		return nil, fmt.Errorf("aggregating build %s: %w", build.ID, err)
	}
	log.Debug("reports aggregated", slog.String("state", string(result.State())))

	if err := p.finalize(ctx, build, result); err != nil {
		return nil, err
	}

	if err := p.History.SaveResult(ctx, result); err != nil {
		return nil, fmt.Errorf("saving result of %s: %w", build.ID, err)
	}
	p.Metrics.ObserveResult(build.Job, result)
	log.Info("coverage result finalized", slog.String("state", string(result.State())))
	return result, nil
}

// finalize resolves the reference and either computes or skips the deltas.
func (p *Processor) finalize(ctx context.Context, build schema.BuildRecord, result *schema.Result) error {
	ref, err := p.Resolver.Resolve(ctx, build, p.Strategy)
	if err != nil {
		return err
	}
	if ref == nil {
		if err := result.AttachReference(nil); err != nil {
			return err
		}
		return result.SkipDeltas()
	}

	reference, err := p.History.GetResult(ctx, ref.ReferenceID)
	if err != nil {
		return fmt.Errorf("loading result of reference %s: %w", ref.ReferenceID, err)
	}
	if err := result.AttachReference(ref); err != nil {
		return err
	}
	report := ComputeDelta(result, reference)
	for _, row := range report.Changed() {
		p.logger().Debug("coverage changed",
			slog.String("build", build.ID),
			slog.String("element", row.Element.String()),
			slog.Int("delta", *row.Delta))
	}
	return ApplyDelta(result, report)
}

// ingest normalizes every input. It keeps going after a failure so that all broken
// reports are reported at once.
func (p *Processor) ingest(ctx context.Context, inputs []schema.ReportInput) ([]*schema.Node, error) {
	var (
		trees []*schema.Node
		errs  []error
	)
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tree, err := p.normalizeInput(in)
		if err != nil {
			errs = append(errs, &IngestError{Adapter: in.Adapter, Path: in.Path, Err: err})
			continue
		}
		trees = append(trees, tree)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return trees, nil
}

// normalizeInput reads one report, reusing a cached tree for identical content.
func (p *Processor) normalizeInput(in schema.ReportInput) (*schema.Node, error) {
	start := time.Now()
	n, err := p.Normalizers.Get(in.Adapter)
	if err != nil {
		p.Metrics.ObserveIngest(in.Adapter, metrics.StatusError, time.Since(start))
		return nil, err
	}
	data, err := os.ReadFile(in.Path)
	if err != nil {
		p.Metrics.ObserveIngest(in.Adapter, metrics.StatusError, time.Since(start))
		return nil, err
	}

	key := cacheKey(n.Name(), data)
	if tree := p.checkCacheHit(key); tree != nil {
		p.Metrics.ObserveIngest(in.Adapter, metrics.StatusCached, time.Since(start))
		return tree, nil
	}

	tree, err := n.Normalize(bytes.NewReader(data))
	if err == nil {
		err = tree.Validate()
	}
	if err != nil {
		p.Metrics.ObserveIngest(in.Adapter, metrics.StatusError, time.Since(start))
		return nil, err
	}
	p.storeInCache(key, tree)
	p.Metrics.ObserveIngest(in.Adapter, metrics.StatusOK, time.Since(start))
	return tree, nil
}

// checkCacheHit attempts to retrieve and validate a cached tree.
func (p *Processor) checkCacheHit(key string) *schema.Node {
	if p.Cache == nil {
		return nil
	}
	data, version, ts, err := p.Cache.Get(key)
	if err != nil || version != currentCacheVersion {
		return nil // Cache miss
	}
	if time.Since(time.Unix(ts, 0)) > cacheMaxAge {
		return nil // Stale
	}
	var tree schema.Node
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil
	}
	if err := tree.Validate(); err != nil {
		return nil
	}
	return &tree
}

// storeInCache saves a normalized tree. Cache failures only cost a re-parse later.
func (p *Processor) storeInCache(key string, tree *schema.Node) {
	if p.Cache == nil {
		return
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return
	}
	if err := p.Cache.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
		p.logger().Warn("caching normalized report failed", slog.String("key", key), slog.Any("error", err))
	}
}

// cacheKey combines the adapter with a hash of the raw report.
func cacheKey(adapter string, data []byte) string {
	sum := sha256.Sum256(data)
	return adapter + ":" + hex.EncodeToString(sum[:])
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
