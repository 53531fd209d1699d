// Package digest builds per-user activity digests: the weekly feed of feedback
// comments a coach or player should see, enriched with display metadata.
//
// A build is all-or-nothing towards the caller. Failing to establish the
// session, the team scope or the comment list aborts it; failing to resolve a
// single game, author or key moment only removes that piece of data.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/pkg/logger"
	"github.com/okian/huddle/pkg/metrics"
)

// DefaultWindow is how far back a digest looks.
const DefaultWindow = 7 * 24 * time.Hour

// Drop reasons reported to metrics.
const (
	dropOutsideWindow = "outside_window"
	dropSelfAuthored  = "self_authored"
	dropNotTargeted   = "not_targeted"
)

const tracerName = "github.com/okian/huddle/internal/domain/digest"

// Builder orchestrates digest builds over injected directories.
type Builder struct {
	dirs     Directories
	resolver *MetadataResolver
	filter   *KeyMomentFilter
	fanout   Fanout
	window   time.Duration
	clock    func() time.Time
	tracer   trace.Tracer
	logger   logger.Logger
}

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithWindow sets how far back digests look.
func WithWindow(window time.Duration) Option {
	return func(b *Builder) {
		if window > 0 {
			b.window = window
		}
	}
}

// WithClock sets the time source used to compute the window.
func WithClock(clock func() time.Time) Option {
	return func(b *Builder) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// WithFanout sets the executor used for per-comment lookups.
func WithFanout(f Fanout) Option {
	return func(b *Builder) {
		if f != nil {
			b.fanout = f
		}
	}
}

// WithLogger sets a custom logger for the builder.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithTracer sets the tracer used for build spans.
func WithTracer(t trace.Tracer) Option {
	return func(b *Builder) {
		if t != nil {
			b.tracer = t
		}
	}
}

// NewBuilder creates a Builder. Every directory in dirs must be set.
func NewBuilder(dirs Directories, opts ...Option) (*Builder, error) {
	switch {
	case dirs.Auth == nil:
		return nil, fmt.Errorf("digest builder: auth provider is required")
	case dirs.Teams == nil:
		return nil, fmt.Errorf("digest builder: team directory is required")
	case dirs.Comments == nil:
		return nil, fmt.Errorf("digest builder: comment store is required")
	case dirs.Games == nil:
		return nil, fmt.Errorf("digest builder: game directory is required")
	case dirs.KeyMoments == nil:
		return nil, fmt.Errorf("digest builder: key moment store is required")
	case dirs.Users == nil:
		return nil, fmt.Errorf("digest builder: user directory is required")
	}

	b := &Builder{
		dirs:   dirs,
		fanout: sequential{},
		window: DefaultWindow,
		clock:  time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.Get().Named("digest")
	}

	b.resolver = NewMetadataResolver(dirs.Games, dirs.Users, b.fanout, b.logger)
	b.filter = NewKeyMomentFilter(dirs.Games, dirs.KeyMoments, b.logger)
	return b, nil
}

// BuildCoachDigest returns the comments posted in the last window on teams the
// coach coaches, excluding the coach's own comments. The session must belong to coachID.
func (b *Builder) BuildCoachDigest(ctx context.Context, coachID string) (model.Digest, error) {
	return b.Build(ctx, Coach(coachID))
}

// BuildPlayerDigest returns the comments posted in the last window on the
// player's teams whose key moment targets the player. A player without teams
// gets an empty digest.
func (b *Builder) BuildPlayerDigest(ctx context.Context, playerID string) (model.Digest, error) {
	return b.Build(ctx, Player(playerID))
}

// Build runs the digest pipeline for an audience.
func (b *Builder) Build(ctx context.Context, a Audience) (d model.Digest, err error) {
	role := string(a.Role())
	start := time.Now()
	log := b.logger.With(
		logger.String("digestID", uuid.NewString()),
		logger.String("role", role),
		logger.String("subject", a.Subject()),
	)

	ctx, span := b.tracer.Start(ctx, "digest.Build", trace.WithAttributes(
		attribute.String("digest.role", role),
	))
	defer func() {
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = metrics.OutcomeError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Warn(ctx, "digest build failed", logger.Error(err))
		} else {
			span.SetAttributes(attribute.Int("digest.comments", d.Len()))
			metrics.RecordDigestSize(role, d.Len())
			log.Debug(ctx, "digest built", logger.Int("comments", d.Len()))
		}
		metrics.RecordDigestBuilt(role, outcome)
		metrics.RecordDigestDuration(role, float64(time.Since(start).Milliseconds()))
		span.End()
	}()

	return b.build(ctx, a)
}

func (b *Builder) build(ctx context.Context, a Audience) (model.Digest, error) {
	if strings.TrimSpace(a.Subject()) == "" {
		return model.Digest{}, ErrSubjectRequired
	}

	// The author whose own comments never appear in this digest.
	excluded := a.Subject()
	if a.requiresSession() {
		identity, err := b.dirs.Auth.CurrentUser(ctx)
		if err != nil {
			return model.Digest{}, fmt.Errorf("%w: %w", ErrAuth, err)
		}
		if identity == "" {
			return model.Digest{}, ErrAuth
		}
		if identity != a.Subject() {
			return model.Digest{}, ErrIdentityMismatch
		}
		excluded = identity
	}

	teamIDs, err := b.scope(ctx, a)
	if err != nil {
		return model.Digest{}, remote(ctx, "teams", err)
	}
	if len(teamIDs) == 0 {
		return model.NewDigest(), nil
	}

	now := b.clock()
	since := now.Add(-b.window)
	fetched, err := b.dirs.Comments.FetchSince(ctx, teamIDs, since)
	if err != nil {
		return model.Digest{}, remote(ctx, "comments", err)
	}

	role := string(a.Role())
	inWindow := make([]model.Comment, 0, len(fetched))
	var outside, self int
	for _, c := range fetched {
		switch {
		case c.CreatedAt.Before(since) || c.CreatedAt.After(now):
			outside++
		case c.AuthorID == excluded:
			self++
		default:
			inWindow = append(inWindow, c)
		}
	}
	metrics.RecordCommentsDropped(role, dropOutsideWindow, outside)
	metrics.RecordCommentsDropped(role, dropSelfAuthored, self)

	comments := inWindow
	if a.requiresTargeting() {
		comments, err = b.targeted(ctx, a.Subject(), inWindow)
		if err != nil {
			return model.Digest{}, err
		}
		metrics.RecordCommentsDropped(role, dropNotTargeted, len(inWindow)-len(comments))
	}

	md, err := b.resolver.Resolve(ctx, comments)
	if err != nil {
		return model.Digest{}, err
	}

	return model.Digest{
		Comments:     comments,
		TitleByGame:  md.TitleByGame,
		TeamByGame:   md.TeamByGame,
		NameByAuthor: md.NameByAuthor,
	}, nil
}

// remote wraps a directory failure, unless the build itself was cancelled.
func remote(ctx context.Context, source string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &RemoteFetchError{Source: source, Err: err}
}

// scope returns the team ids the audience can see.
func (b *Builder) scope(ctx context.Context, a Audience) ([]string, error) {
	switch a.Role() {
	case model.RoleCoach:
		return b.dirs.Teams.TeamsCoachedBy(ctx, a.Subject())
	case model.RolePlayer:
		return b.dirs.Teams.TeamsEnrolledBy(ctx, a.Subject())
	default:
		return nil, fmt.Errorf("unsupported audience role %q", a.Role())
	}
}

// targeted keeps the comments whose key moment targets playerID, in input order.
func (b *Builder) targeted(ctx context.Context, playerID string, comments []model.Comment) ([]model.Comment, error) {
	keep := make([]bool, len(comments))
	err := b.fanout.Each(ctx, len(comments), func(ctx context.Context, i int) error {
		keep[i] = b.filter.Targets(ctx, playerID, comments[i])
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Comment, 0, len(comments))
	for i, c := range comments {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out, nil
}
