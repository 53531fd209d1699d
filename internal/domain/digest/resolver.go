package digest

import (
	"context"
	"errors"

	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/pkg/logger"
	"github.com/okian/huddle/pkg/metrics"
)

// Lookup kinds used for metrics and logs.
const (
	lookupTeam      = "team"
	lookupTitle     = "title"
	lookupAuthor    = "author"
	lookupKeyMoment = "key_moment"
)

// Metadata carries the display data resolved for a set of comments.
// A missing entry means the lookup failed; it is never retried within a build.
type Metadata struct {
	TitleByGame  map[string]string
	TeamByGame   map[string]string
	NameByAuthor map[string]string
}

// MetadataResolver resolves game titles, owning teams and author names.
type MetadataResolver struct {
	games  GameDirectory
	users  UserDirectory
	fanout Fanout
	logger logger.Logger
}

// NewMetadataResolver creates a resolver. A nil fanout resolves sequentially.
func NewMetadataResolver(games GameDirectory, users UserDirectory, fanout Fanout, log logger.Logger) *MetadataResolver {
	if fanout == nil {
		fanout = sequential{}
	}
	return &MetadataResolver{games: games, users: users, fanout: fanout, logger: log}
}

// gameMeta is what one game id resolves to.
type gameMeta struct {
	teamID   string
	title    string
	hasTitle bool
}

// lookups is the request-scoped memo; one is created per Resolve call and discarded after.
type lookups struct {
	games   *memo[gameMeta]
	authors *memo[string]
}

func newLookups() *lookups {
	return &lookups{games: newMemo[gameMeta](), authors: newMemo[string]()}
}

// Resolve enriches comments. Failures leave map entries absent and never fail the call;
// the only error returned is the context's when the build was cancelled.
func (r *MetadataResolver) Resolve(ctx context.Context, comments []model.Comment) (Metadata, error) {
	l := newLookups()

	err := r.fanout.Each(ctx, len(comments), func(ctx context.Context, i int) error {
		c := comments[i]
		l.games.get(c.GameID, func() (gameMeta, bool) { return r.resolveGame(ctx, c.GameID) })
		l.authors.get(c.AuthorID, func() (string, bool) { return r.resolveAuthor(ctx, c.AuthorID) })
		return nil
	})
	if err != nil {
		return Metadata{}, err
	}
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}

	md := Metadata{
		TitleByGame:  map[string]string{},
		TeamByGame:   map[string]string{},
		NameByAuthor: map[string]string{},
	}
	l.games.each(func(gameID string, g gameMeta) {
		md.TeamByGame[gameID] = g.teamID
		if g.hasTitle {
			md.TitleByGame[gameID] = g.title
		}
	})
	l.authors.each(func(authorID, name string) {
		md.NameByAuthor[authorID] = name
	})
	return md, nil
}

// resolveGame finds the owning team and, when that succeeds, the title.
func (r *MetadataResolver) resolveGame(ctx context.Context, gameID string) (gameMeta, bool) {
	teamID, err := r.games.TeamForGame(ctx, gameID)
	if err != nil {
		r.miss(ctx, lookupTeam, gameID, err)
		return gameMeta{}, false
	}
	metrics.RecordLookup(lookupTeam, metrics.OutcomeOK)

	meta := gameMeta{teamID: teamID}
	title, err := r.games.TitleForGame(ctx, teamID, gameID)
	if err != nil {
		r.miss(ctx, lookupTitle, gameID, err)
		return meta, true
	}
	metrics.RecordLookup(lookupTitle, metrics.OutcomeOK)
	meta.title, meta.hasTitle = title, true
	return meta, true
}

func (r *MetadataResolver) resolveAuthor(ctx context.Context, authorID string) (string, bool) {
	u, err := r.users.Get(ctx, authorID)
	if err != nil {
		r.miss(ctx, lookupAuthor, authorID, err)
		return "", false
	}
	metrics.RecordLookup(lookupAuthor, metrics.OutcomeOK)
	return u.DisplayName(), true
}

func (r *MetadataResolver) miss(ctx context.Context, kind, id string, err error) {
	recordMiss(kind, err)
	r.logger.Debug(ctx, "lookup failed", logger.String("kind", kind), logger.String("id", id), logger.Error(err))
}

// recordMiss counts a failed lookup, separating plain misses from other failures.
func recordMiss(kind string, err error) {
	if errors.Is(err, model.ErrNotFound) {
		metrics.RecordLookup(kind, metrics.OutcomeNotFound)
		return
	}
	metrics.RecordLookup(kind, metrics.OutcomeError)
}
