package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/schema"
)

// Resolver selects the reference build of a build and records it in the history.
type Resolver struct {
	History contract.BuildHistory

	// ReferenceID is the configured reference for the explicit and external strategies.
	ReferenceID string

	// Messages are supplied by the subsystem that chose an external reference.
	Messages []string

	// AllowUnstable lets previous-successful also pick unstable builds.
	AllowUnstable bool

	Logger *slog.Logger
	Now    func() time.Time
}

// Resolve returns the reference of build for the given strategy. A reference that
// is already attached is returned unchanged, so repeated calls agree. When no build
// is eligible the result is (nil, nil): that is a valid outcome, not an error. Only
// builds with a terminal outcome and a stored coverage result are eligible.
func (r *Resolver) Resolve(ctx context.Context, build schema.BuildRecord, strategy schema.Strategy) (*schema.ReferenceBuild, error) {
	log := r.logger().With(slog.String("build", build.ID), slog.String("strategy", string(strategy)))

	existing, err := r.History.GetReference(ctx, build.ID)
	if err != nil {
		return nil, fmt.Errorf("reading reference of %s: %w", build.ID, err)
	}
	if existing != nil {
		log.Debug("reference already attached", slog.String("reference", existing.ReferenceID))
		return existing, nil
	}

	var (
		candidate *schema.BuildRecord
		messages  []string
	)
	switch strategy {
	case schema.ExplicitStrategy:
		candidate, messages, err = r.explicit(ctx, build)
	case schema.PreviousSuccessfulStrategy:
		candidate, messages, err = r.previousSuccessful(ctx, build)
	case schema.ExternalStrategy:
		candidate, messages, err = r.external(ctx, build)
	default:
		return nil, fmt.Errorf("unknown reference strategy %q", strategy)
	}
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		for _, m := range messages {
			log.Info(m)
		}
		log.Info("no reference build, delta computation is skipped")
		return nil, nil
	}

	ref := schema.ReferenceBuild{
		BuildID:     build.ID,
		ReferenceID: candidate.ID,
		Strategy:    strategy,
		Messages:    messages,
		ResolvedAt:  r.now(),
	}
	if err := r.History.AttachReference(ctx, ref); err != nil {
		if !errors.Is(err, schema.ErrReferenceAttached) {
			return nil, fmt.Errorf("attaching reference of %s: %w", build.ID, err)
		}
		// Another resolution won the race; its reference is the stable one.
		return r.History.GetReference(ctx, build.ID)
	}
	log.Info("reference build attached", slog.String("reference", ref.ReferenceID))
	return &ref, nil
}

// explicit uses the configured reference id, which must be an earlier build of the same job.
func (r *Resolver) explicit(ctx context.Context, build schema.BuildRecord) (*schema.BuildRecord, []string, error) {
	if r.ReferenceID == "" {
		return nil, []string{"No reference build configured"}, nil
	}
	candidate, reason, err := r.lookup(ctx, build, r.ReferenceID)
	if err != nil || candidate == nil {
		return nil, []string{reason}, err
	}
	if candidate.Job != build.Job {
		return nil, []string{fmt.Sprintf("Reference build '%s' belongs to job '%s', not '%s'", candidate.ID, candidate.Job, build.Job)}, nil
	}
	if candidate.Number >= build.Number {
		return nil, []string{fmt.Sprintf("Reference build '%s' is not before #%d", candidate.ID, build.Number)}, nil
	}
	return candidate, []string{fmt.Sprintf("Using configured reference build '%s'", candidate.ID)}, nil
}

// external attaches a linkage chosen elsewhere after checking it exists.
func (r *Resolver) external(ctx context.Context, build schema.BuildRecord) (*schema.BuildRecord, []string, error) {
	if r.ReferenceID == "" {
		return nil, []string{"No reference build supplied"}, nil
	}
	candidate, reason, err := r.lookup(ctx, build, r.ReferenceID)
	if err != nil || candidate == nil {
		return nil, append([]string{reason}, r.Messages...), err
	}
	messages := append([]string(nil), r.Messages...)
	if len(messages) == 0 {
		messages = []string{fmt.Sprintf("Using supplied reference build '%s'", candidate.ID)}
	}
	return candidate, messages, nil
}

// previousSuccessful walks the job history backwards from build.
func (r *Resolver) previousSuccessful(ctx context.Context, build schema.BuildRecord) (*schema.BuildRecord, []string, error) {
	builds, err := r.History.ListBuilds(ctx, build.Job)
	if err != nil {
		return nil, nil, fmt.Errorf("listing builds of job %s: %w", build.Job, err)
	}

	var messages []string
	for i := range builds {
		candidate := builds[i]
		if candidate.ID == build.ID || candidate.Number >= build.Number {
			continue
		}
		if reason := r.ineligible(candidate); reason != "" {
			messages = append(messages, reason)
			continue
		}
		if !r.acceptsOutcome(candidate.Outcome) {
			messages = append(messages, fmt.Sprintf("Skipping build '%s': outcome is %s", candidate.ID, candidate.Outcome))
			continue
		}
		ok, err := r.History.HasResult(ctx, candidate.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("checking result of %s: %w", candidate.ID, err)
		}
		if !ok {
			messages = append(messages, fmt.Sprintf("Skipping build '%s': no coverage result", candidate.ID))
			continue
		}
		messages = append(messages, fmt.Sprintf("Found reference build '%s' for job '%s'", candidate.ID, build.Job))
		return &candidate, messages, nil
	}
	messages = append(messages, fmt.Sprintf("No eligible build found before #%d of job '%s'", build.Number, build.Job))
	return nil, messages, nil
}

// lookup loads a configured reference and checks it can serve as one.
func (r *Resolver) lookup(ctx context.Context, build schema.BuildRecord, id string) (*schema.BuildRecord, string, error) {
	if id == build.ID {
		return nil, fmt.Sprintf("Build '%s' cannot be its own reference", id), nil
	}
	candidate, err := r.History.GetBuild(ctx, id)
	if errors.Is(err, schema.ErrBuildNotFound) {
		return nil, fmt.Sprintf("Reference build '%s' does not exist", id), nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("loading reference build %s: %w", id, err)
	}
	if reason := r.ineligible(candidate); reason != "" {
		return nil, reason, nil
	}
	ok, err := r.History.HasResult(ctx, candidate.ID)
	if err != nil {
		return nil, "", fmt.Errorf("checking result of %s: %w", candidate.ID, err)
	}
	if !ok {
		return nil, fmt.Sprintf("Reference build '%s' has no coverage result", candidate.ID), nil
	}
	return &candidate, "", nil
}

// ineligible explains why a build can never be a reference, or returns "".
func (r *Resolver) ineligible(candidate schema.BuildRecord) string {
	if !candidate.Outcome.IsTerminal() {
		return fmt.Sprintf("Skipping build '%s': still running", candidate.ID)
	}
	return ""
}

func (r *Resolver) acceptsOutcome(o schema.Outcome) bool {
	return o == schema.SuccessOutcome || (r.AllowUnstable && o == schema.UnstableOutcome)
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}
