package digest

import (
	"context"

	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/pkg/logger"
	"github.com/okian/huddle/pkg/metrics"
)

// KeyMomentFilter decides whether a comment's key moment targets a player.
// It issues two sequential lookups per comment and caches nothing.
type KeyMomentFilter struct {
	games   GameDirectory
	moments KeyMomentStore
	logger  logger.Logger
}

// NewKeyMomentFilter creates a filter over the given directories.
func NewKeyMomentFilter(games GameDirectory, moments KeyMomentStore, log logger.Logger) *KeyMomentFilter {
	return &KeyMomentFilter{games: games, moments: moments, logger: log}
}

// Targets reports whether c is feedback for playerID. Self-authored comments,
// unresolvable games and unresolvable key moments all yield false.
func (f *KeyMomentFilter) Targets(ctx context.Context, playerID string, c model.Comment) bool {
	if c.AuthorID == playerID {
		return false
	}

	teamID, err := f.games.TeamForGame(ctx, c.GameID)
	if err != nil {
		recordMiss(lookupTeam, err)
		f.logger.Debug(ctx, "dropping comment: game has no team",
			logger.String("commentID", c.ID), logger.String("gameID", c.GameID), logger.Error(err))
		return false
	}
	metrics.RecordLookup(lookupTeam, metrics.OutcomeOK)

	km, err := f.moments.Get(ctx, teamID, c.GameID, c.KeyMomentID)
	if err != nil {
		recordMiss(lookupKeyMoment, err)
		f.logger.Debug(ctx, "dropping comment: key moment unresolvable",
			logger.String("commentID", c.ID), logger.String("keyMomentID", c.KeyMomentID), logger.Error(err))
		return false
	}
	metrics.RecordLookup(lookupKeyMoment, metrics.OutcomeOK)

	return km.Targets(playerID)
}
