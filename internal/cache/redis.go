// Package cache keeps hot round state in Redis: the result of every
// finished round and a running house-profit gauge. The server runs fine
// without it; New returns nil when Redis is unreachable.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"crashd/internal/game"
)

const (
	ROUND_KEY_PREFIX = "crash:round:"
	HOUSE_PROFIT_KEY = "crash:house_profit"
	LAST_ROUND_KEY   = "crash:round:last"
	ROUND_TTL        = 1 * time.Hour
)

type Service interface {
	GetClient() *redis.Client
	Health() map[string]string
	Close() error

	// RecordRound satisfies game.RoundRecorder.
	RecordRound(ctx context.Context, result game.RoundResult) error
	// LastRound returns the most recently stored result, if any.
	LastRound(ctx context.Context) (*game.RoundResult, error)
}

type service struct {
	client *redis.Client
}

var (
	redisAddr     = getEnv("REDIS_URL", "localhost:6379")
	redisPassword = getEnv("REDIS_PASSWORD", "")
	redisDB       = getEnvAsInt("REDIS_DB", 0)
	cacheInstance *service
)

func New() Service {
	if cacheInstance != nil {
		return cacheInstance
	}

	client := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     redisPassword,
		DB:           redisDB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("[CACHE] Redis connection failed: %v", err)
		log.Println("[CACHE] Running without round cache")
		return nil
	}

	log.Println("[CACHE] Redis connected successfully")

	cacheInstance = &service{client: client}
	return cacheInstance
}

func (s *service) GetClient() *redis.Client {
	return s.client
}

// RecordRound stores the finished round under its id and refreshes the
// house-profit gauge. Called off the engine loop; errors are the
// caller's to log.
func (s *service) RecordRound(ctx context.Context, result game.RoundResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache: marshal round %d: %w", result.RoundID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf("%s%d", ROUND_KEY_PREFIX, result.RoundID), data, ROUND_TTL)
	pipe.Set(ctx, LAST_ROUND_KEY, data, ROUND_TTL)
	pipe.Set(ctx, HOUSE_PROFIT_KEY, result.HouseProfit, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: store round %d: %w", result.RoundID, err)
	}
	return nil
}

func (s *service) LastRound(ctx context.Context) (*game.RoundResult, error) {
	data, err := s.client.Get(ctx, LAST_ROUND_KEY).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: last round: %w", err)
	}
	var result game.RoundResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("cache: decode last round: %w", err)
	}
	return &result, nil
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if _, err := s.client.Ping(ctx).Result(); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("redis down: %v", err)
		return stats
	}

	stats["status"] = "up"

	poolStats := s.client.PoolStats()
	stats["hits"] = strconv.FormatUint(uint64(poolStats.Hits), 10)
	stats["misses"] = strconv.FormatUint(uint64(poolStats.Misses), 10)
	stats["timeouts"] = strconv.FormatUint(uint64(poolStats.Timeouts), 10)
	stats["total_conns"] = strconv.FormatUint(uint64(poolStats.TotalConns), 10)
	stats["idle_conns"] = strconv.FormatUint(uint64(poolStats.IdleConns), 10)

	return stats
}

func (s *service) Close() error {
	log.Println("[CACHE] Disconnecting from Redis")
	return s.client.Close()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
