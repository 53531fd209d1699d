package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/huddle/internal/domain/model"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	role       TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS teams (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	seq  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS team_members (
	team_id  TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	user_id  TEXT NOT NULL,
	role     TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (team_id, user_id, role)
);
CREATE INDEX IF NOT EXISTS team_members_user ON team_members(user_id, role);
CREATE TABLE IF NOT EXISTS games (
	id      TEXT PRIMARY KEY,
	team_id TEXT NOT NULL,
	title   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS games_team ON games(team_id);
CREATE TABLE IF NOT EXISTS key_moments (
	team_id TEXT NOT NULL,
	game_id TEXT NOT NULL,
	id      TEXT NOT NULL,
	PRIMARY KEY (team_id, game_id, id)
);
CREATE TABLE IF NOT EXISTS key_moment_targets (
	team_id   TEXT NOT NULL,
	game_id   TEXT NOT NULL,
	moment_id TEXT NOT NULL,
	player_id TEXT NOT NULL,
	position  INTEGER NOT NULL,
	PRIMARY KEY (team_id, game_id, moment_id, player_id),
	FOREIGN KEY (team_id, game_id, moment_id) REFERENCES key_moments(team_id, game_id, id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS comments (
	id             TEXT PRIMARY KEY,
	game_id        TEXT NOT NULL,
	key_moment_id  TEXT NOT NULL DEFAULT '',
	author_id      TEXT NOT NULL,
	body           TEXT NOT NULL DEFAULT '',
	created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS comments_game_created ON comments(game_id, created_at);
`

const (
	memberCoach  = "coach"
	memberPlayer = "player"
)

// SQLiteStore persists entities in a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	maxOpenConns  int
	busyTimeoutMS int
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// OpenSQLite opens the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	s := &SQLiteStore{maxOpenConns: 1, busyTimeoutMS: 5000}
	for _, opt := range opts {
		opt(s)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		filepath.Clean(path), s.busyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	s.db = db
	return s, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutUser stores a user.
func (s *SQLiteStore) PutUser(ctx context.Context, u model.User) error {
	if err := validateUser(u); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, role, first_name, last_name) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET role = excluded.role, first_name = excluded.first_name, last_name = excluded.last_name`,
		u.ID, string(u.Role), u.FirstName, u.LastName)
	if err != nil {
		return fmt.Errorf("put user %q: %w", u.ID, err)
	}
	return nil
}

// PutTeam stores a team and replaces its roster.
func (s *SQLiteStore) PutTeam(ctx context.Context, t model.Team) error {
	if err := validateTeam(t); err != nil {
		return err
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO teams (id, name, seq) VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM teams))
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
			t.ID, t.Name); err != nil {
			return fmt.Errorf("put team %q: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = ?`, t.ID); err != nil {
			return fmt.Errorf("clear roster %q: %w", t.ID, err)
		}
		if err := insertMembers(ctx, tx, t.ID, memberCoach, t.CoachIDs); err != nil {
			return err
		}
		return insertMembers(ctx, tx, t.ID, memberPlayer, t.PlayerIDs)
	})
}

func insertMembers(ctx context.Context, tx *sql.Tx, teamID, role string, userIDs []string) error {
	for i, id := range userIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO team_members (team_id, user_id, role, position) VALUES (?, ?, ?, ?)`,
			teamID, id, role, i); err != nil {
			return fmt.Errorf("add %s %q to team %q: %w", role, id, teamID, err)
		}
	}
	return nil
}

// PutGame stores a game.
func (s *SQLiteStore) PutGame(ctx context.Context, g model.Game) error {
	if err := validateGame(g); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (id, team_id, title) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET team_id = excluded.team_id, title = excluded.title`,
		g.ID, g.TeamID, g.Title)
	if err != nil {
		return fmt.Errorf("put game %q: %w", g.ID, err)
	}
	return nil
}

// PutKeyMoment stores a key moment and replaces its targets.
func (s *SQLiteStore) PutKeyMoment(ctx context.Context, km model.KeyMoment) error {
	if err := validateKeyMoment(km); err != nil {
		return err
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO key_moments (team_id, game_id, id) VALUES (?, ?, ?)`,
			km.TeamID, km.GameID, km.ID); err != nil {
			return fmt.Errorf("put key moment %q: %w", km.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM key_moment_targets WHERE team_id = ? AND game_id = ? AND moment_id = ?`,
			km.TeamID, km.GameID, km.ID); err != nil {
			return fmt.Errorf("clear targets %q: %w", km.ID, err)
		}
		for i, pid := range km.TargetPlayerIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO key_moment_targets (team_id, game_id, moment_id, player_id, position) VALUES (?, ?, ?, ?, ?)`,
				km.TeamID, km.GameID, km.ID, pid, i); err != nil {
				return fmt.Errorf("add target %q to %q: %w", pid, km.ID, err)
			}
		}
		return nil
	})
}

// PutComment stores a comment.
func (s *SQLiteStore) PutComment(ctx context.Context, c model.Comment) error {
	if err := validateComment(c); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (id, game_id, key_moment_id, author_id, body, created_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET game_id = excluded.game_id, key_moment_id = excluded.key_moment_id,
		   author_id = excluded.author_id, body = excluded.body, created_at = excluded.created_at`,
		c.ID, c.GameID, c.KeyMomentID, c.AuthorID, c.Body, toMillis(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("put comment %q: %w", c.ID, err)
	}
	return nil
}

func (s *SQLiteStore) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// TeamsCoachedBy returns the ids of teams listing coachID as a coach.
func (s *SQLiteStore) TeamsCoachedBy(ctx context.Context, coachID string) ([]string, error) {
	return s.teamsFor(ctx, coachID, memberCoach)
}

// TeamsEnrolledBy returns the ids of teams listing playerID as a player.
func (s *SQLiteStore) TeamsEnrolledBy(ctx context.Context, playerID string) ([]string, error) {
	return s.teamsFor(ctx, playerID, memberPlayer)
}

func (s *SQLiteStore) teamsFor(ctx context.Context, userID, role string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id FROM teams t JOIN team_members m ON m.team_id = t.id
		 WHERE m.user_id = ? AND m.role = ? ORDER BY t.seq`,
		userID, role)
	if err != nil {
		return nil, fmt.Errorf("query %s teams: %w", role, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan team id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FetchSince returns comments on the teams' games created at or after since, newest first.
func (s *SQLiteStore) FetchSince(ctx context.Context, teamIDs []string, since time.Time) ([]model.Comment, error) {
	out := []model.Comment{}
	if len(teamIDs) == 0 {
		return out, ctx.Err()
	}

	args := make([]any, 0, len(teamIDs)+1)
	for _, id := range teamIDs {
		args = append(args, id)
	}
	args = append(args, toMillis(since))
	query := `SELECT c.id, c.game_id, c.key_moment_id, c.author_id, c.body, c.created_at
		FROM comments c JOIN games g ON g.id = c.game_id
		WHERE g.team_id IN (?` + strings.Repeat(", ?", len(teamIDs)-1) + `) AND c.created_at >= ?
		ORDER BY c.created_at DESC, c.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c       model.Comment
			created int64
		)
		if err := rows.Scan(&c.ID, &c.GameID, &c.KeyMomentID, &c.AuthorID, &c.Body, &created); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.CreatedAt = fromMillis(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

// TeamForGame returns the team owning gameID.
func (s *SQLiteStore) TeamForGame(ctx context.Context, gameID string) (string, error) {
	var teamID string
	err := s.db.QueryRowContext(ctx, `SELECT team_id FROM games WHERE id = ?`, gameID).Scan(&teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound("game", gameID)
	}
	if err != nil {
		return "", fmt.Errorf("get game %q: %w", gameID, err)
	}
	return teamID, nil
}

// TitleForGame returns the title of gameID within teamID.
func (s *SQLiteStore) TitleForGame(ctx context.Context, teamID, gameID string) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx,
		`SELECT title FROM games WHERE id = ? AND team_id = ?`, gameID, teamID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound("game", gameID)
	}
	if err != nil {
		return "", fmt.Errorf("get game title %q: %w", gameID, err)
	}
	return title, nil
}

// GetKeyMoment returns the key moment identified by team, game and id.
func (s *SQLiteStore) GetKeyMoment(ctx context.Context, teamID, gameID, keyMomentID string) (model.KeyMoment, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM key_moments WHERE team_id = ? AND game_id = ? AND id = ?`,
		teamID, gameID, keyMomentID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return model.KeyMoment{}, notFound("key moment", keyMomentID)
	}
	if err != nil {
		return model.KeyMoment{}, fmt.Errorf("get key moment %q: %w", keyMomentID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id FROM key_moment_targets
		 WHERE team_id = ? AND game_id = ? AND moment_id = ? ORDER BY position`,
		teamID, gameID, keyMomentID)
	if err != nil {
		return model.KeyMoment{}, fmt.Errorf("query targets %q: %w", keyMomentID, err)
	}
	defer rows.Close()

	km := model.KeyMoment{ID: keyMomentID, TeamID: teamID, GameID: gameID, TargetPlayerIDs: []string{}}
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return model.KeyMoment{}, fmt.Errorf("scan target: %w", err)
		}
		km.TargetPlayerIDs = append(km.TargetPlayerIDs, pid)
	}
	return km, rows.Err()
}

// GetUser returns a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, role, first_name, last_name FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &role, &u.FirstName, &u.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, notFound("user", userID)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %q: %w", userID, err)
	}
	u.Role = model.ParseRole(role)
	return u, nil
}

// Counts returns the number of stored entities by kind.
func (s *SQLiteStore) Counts(ctx context.Context) (map[string]int, error) {
	tables := map[string]string{
		"users":       "users",
		"teams":       "teams",
		"games":       "games",
		"key_moments": "key_moments",
		"comments":    "comments",
	}
	out := make(map[string]int, len(tables))
	for kind, table := range tables {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", kind, err)
		}
		out[kind] = n
	}
	return out, nil
}
