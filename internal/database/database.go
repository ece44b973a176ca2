// Package database persists round history to Postgres: one row per
// finished round plus a settlement row per staked player. Persistence is
// optional; New returns nil when the database is unreachable and the
// engine simply keeps no history.
package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"

	"crashd/internal/game"
)

type Service interface {
	Health() map[string]string
	Close() error

	// RecordRound satisfies game.RoundRecorder.
	RecordRound(ctx context.Context, result game.RoundResult) error
	// RecentRounds returns up to limit most recent rounds, newest first.
	RecentRounds(ctx context.Context, limit int) ([]game.RoundResult, error)
}

type service struct {
	pool *pgxpool.Pool
}

var (
	database   = getEnv("CRASH_DB_DATABASE", "crashdb")
	password   = getEnv("CRASH_DB_PASSWORD", "postgres")
	username   = getEnv("CRASH_DB_USERNAME", "postgres")
	port       = getEnv("CRASH_DB_PORT", "5432")
	host       = getEnv("CRASH_DB_HOST", "localhost")
	schema     = getEnv("CRASH_DB_SCHEMA", "public")
	dbInstance *service
)

// URL builds the connection string from the environment.
func URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		username, password, host, port, database, schema)
}

func New() Service {
	if dbInstance != nil {
		return dbInstance
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, URL())
	if err != nil {
		log.Printf("[DB] Invalid database config: %v", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		log.Printf("[DB] Postgres connection failed: %v", err)
		log.Println("[DB] Running without round history")
		pool.Close()
		return nil
	}

	log.Println("[DB] Postgres connected successfully")

	dbInstance = &service{pool: pool}
	return dbInstance
}

// RecordRound writes the round and its settlements in one transaction.
func (s *service) RecordRound(ctx context.Context, result game.RoundResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db: begin round %d: %w", result.RoundID, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO rounds (round_id, explosion, bettors, staked, house_delta, house_profit, crashed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (round_id) DO NOTHING`,
		result.RoundID, result.Explosion, result.Bettors, result.Staked,
		result.HouseDelta, result.HouseProfit, result.CrashedAt)
	if err != nil {
		return fmt.Errorf("db: insert round %d: %w", result.RoundID, err)
	}

	for _, st := range result.Settlements {
		_, err = tx.Exec(ctx,
			`INSERT INTO settlements (round_id, player_id, nickname, stake, multiplier, delta, won)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			st.RoundID, st.PlayerID, st.Nickname, st.Stake, st.Multiplier, st.Delta, st.Won)
		if err != nil {
			return fmt.Errorf("db: insert settlement round %d player %d: %w", st.RoundID, st.PlayerID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("db: commit round %d: %w", result.RoundID, err)
	}
	return nil
}

func (s *service) RecentRounds(ctx context.Context, limit int) ([]game.RoundResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT round_id, explosion, bettors, staked, house_delta, house_profit, crashed_at
		 FROM rounds ORDER BY round_id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("db: recent rounds: %w", err)
	}
	defer rows.Close()

	var results []game.RoundResult
	for rows.Next() {
		var r game.RoundResult
		if err := rows.Scan(&r.RoundID, &r.Explosion, &r.Bettors, &r.Staked,
			&r.HouseDelta, &r.HouseProfit, &r.CrashedAt); err != nil {
			return nil, fmt.Errorf("db: scan round: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"

	poolStats := s.pool.Stat()
	stats["total_conns"] = strconv.FormatInt(int64(poolStats.TotalConns()), 10)
	stats["idle_conns"] = strconv.FormatInt(int64(poolStats.IdleConns()), 10)
	stats["acquired_conns"] = strconv.FormatInt(int64(poolStats.AcquiredConns()), 10)

	return stats
}

func (s *service) Close() error {
	log.Println("[DB] Disconnecting from Postgres")
	s.pool.Close()
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
