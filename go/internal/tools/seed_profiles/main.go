package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/mcdev12/duel/go/internal/dbconfig"
	"github.com/mcdev12/duel/go/internal/users"
)

// Seeds demo profiles with played matches so the leaderboard has content in
// a fresh environment.
func main() {
	count := flag.Int("n", 25, "number of profiles to seed")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	_ = godotenv.Load()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(*seed))

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	total, inserted, skipped, errs := *count, 0, 0, 0
	for i := 0; i < *count; i++ {
		var stats users.Stats
		for m := rng.Intn(30); m > 0; m-- {
			won := rng.Intn(2) == 0
			rounds := 5 + rng.Intn(5)
			roundsWon := rounds - 5
			if won {
				roundsWon = 5
			}
			stats.Record(won, roundsWon, rounds)
		}

		tag, err := pool.Exec(ctx, `
            INSERT INTO profiles (
              id, visitor_id, username, avatar,
              matches_played, matches_won, matches_lost,
              rounds_played, rounds_won, win_streak, best_win_streak
            ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
            ON CONFLICT (visitor_id) DO NOTHING
        `,
			uuid.New(), fmt.Sprintf("seed-%04d", i), fmt.Sprintf("Player%04d", rng.Intn(10000)),
			users.Avatars[rng.Intn(len(users.Avatars))],
			stats.MatchesPlayed, stats.MatchesWon, stats.MatchesLost,
			stats.RoundsPlayed, stats.RoundsWon, stats.WinStreak, stats.BestWinStreak,
		)
		if err != nil {
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Profiles seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
}
