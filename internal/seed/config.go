package seed

import "time"

// Config sizes the synthetic dataset.
type Config struct {
	Teams           int           // Number of teams
	CoachesPerTeam  int           // Coaches attached to each team
	PlayersPerTeam  int           // Players enrolled in each team
	GamesPerTeam    int           // Games owned by each team
	MomentsPerGame  int           // Key moments per game
	CommentsPerGame int           // Comments per game
	Span            time.Duration // Comments are spread over [Now-Span, Now]
	Now             time.Time     // Upper bound for comment timestamps
	Seed            uint64        // Seed for the deterministic generator
}

// Default dataset sizing.
const (
	defaultTeams           = 3
	defaultCoachesPerTeam  = 2
	defaultPlayersPerTeam  = 8
	defaultGamesPerTeam    = 4
	defaultMomentsPerGame  = 3
	defaultCommentsPerGame = 12
	defaultSpan            = 10 * 24 * time.Hour
	defaultSeed            = 42
)

// DefaultConfig returns a small dataset ending at now.
func DefaultConfig(now time.Time) Config {
	return Config{
		Teams:           defaultTeams,
		CoachesPerTeam:  defaultCoachesPerTeam,
		PlayersPerTeam:  defaultPlayersPerTeam,
		GamesPerTeam:    defaultGamesPerTeam,
		MomentsPerGame:  defaultMomentsPerGame,
		CommentsPerGame: defaultCommentsPerGame,
		Span:            defaultSpan,
		Now:             now,
		Seed:            defaultSeed,
	}
}
