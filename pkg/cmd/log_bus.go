package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowcanvas/pkg/channels/gochannel"
	"github.com/dukex/flowcanvas/pkg/channels/kafka"
	"github.com/dukex/flowcanvas/pkg/logstream"
	redis "github.com/redis/go-redis/v9"
)

// LogBusConfig selects where execution logs are kept.
type LogBusConfig struct {
	Provider     string // gochannel, kafka or redis
	RedisURL     string
	KafkaBrokers string // comma separated
}

func NewLogStore(cfg LogBusConfig, logger *slog.Logger) logstream.Store {
	switch cfg.Provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create in-memory pub/sub: %w", err))
		}

		return logstream.NewBusStore(pub, sub)
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), splitBrokers(cfg.KafkaBrokers))
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return logstream.NewBusStore(pub, sub)
	case "redis":
		return logstream.NewRedisStore(NewRedisClient(cfg.RedisURL))
	default:
		panic("Unsupported log bus provider: " + cfg.Provider)
	}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(redisURL string) *redis.Client {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("invalid redis url: %w", err))
	}

	return redis.NewClient(opts)
}

func splitBrokers(brokers string) []string {
	var out []string

	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}

	return out
}
