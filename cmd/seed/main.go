package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/okian/huddle/internal/adapters/auth"
	"github.com/okian/huddle/internal/adapters/repository"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/seed"
	"github.com/okian/huddle/pkg/logger"
)

const (
	defaultTokenTTL = 24 * time.Hour
	defaultTimeout  = 2 * time.Minute
)

func main() {
	defaults := seed.DefaultConfig(time.Now().UTC())
	var (
		dbPath   = flag.String("db", "huddle.db", "SQLite database file to fill")
		teams    = flag.Int("teams", defaults.Teams, "Number of teams")
		coaches  = flag.Int("coaches", defaults.CoachesPerTeam, "Coaches per team")
		players  = flag.Int("players", defaults.PlayersPerTeam, "Players per team")
		games    = flag.Int("games", defaults.GamesPerTeam, "Games per team")
		moments  = flag.Int("moments", defaults.MomentsPerGame, "Key moments per game")
		comments = flag.Int("comments", defaults.CommentsPerGame, "Comments per game")
		span     = flag.Duration("span", defaults.Span, "Spread comments over this far into the past")
		seedVal  = flag.Uint64("seed", defaults.Seed, "Generator seed")
		secret   = flag.String("secret", os.Getenv("HUDDLE_AUTH_SECRET"), "Token signing secret (prints dev tokens when set)")
		issuer   = flag.String("issuer", "huddle", "Token issuer")
		ttl      = flag.Duration("ttl", defaultTokenTTL, "Dev token lifetime")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Get().Named("seed")

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cfg := defaults
	cfg.Teams, cfg.CoachesPerTeam, cfg.PlayersPerTeam = *teams, *coaches, *players
	cfg.GamesPerTeam, cfg.MomentsPerGame, cfg.CommentsPerGame = *games, *moments, *comments
	cfg.Span, cfg.Seed = *span, *seedVal

	store, err := repository.OpenSQLite(ctx, *dbPath)
	if err != nil {
		log.Fatal(ctx, "failed to open store", logger.Error(err), logger.String("db", *dbPath))
	}
	defer func() { _ = store.Close() }()

	ds := seed.Generate(cfg)
	if err := seed.Load(ctx, store, ds); err != nil {
		log.Fatal(ctx, "failed to load dataset", logger.Error(err))
	}

	if *secret == "" {
		return
	}
	v, err := auth.NewVerifier(*secret, *issuer)
	if err != nil {
		log.Fatal(ctx, "failed to build verifier", logger.Error(err))
	}
	for _, role := range []model.Role{model.RoleCoach, model.RolePlayer} {
		u, ok := seed.FirstOf(ds, role)
		if !ok {
			continue
		}
		tok, err := v.Issue(u.ID, role, *ttl)
		if err != nil {
			log.Fatal(ctx, "failed to issue token", logger.Error(err))
		}
		fmt.Printf("%s\t%s\t%s\n", role, u.ID, tok)
	}
}
