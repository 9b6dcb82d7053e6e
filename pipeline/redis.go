package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aluiziolira/go-scrape-wishlists/models"
	"github.com/redis/go-redis/v9"
)

// StreamField is the stream entry field carrying the JSON encoded alert.
const StreamField = "alert"

// StreamWriter publishes alerts to a Redis stream, one entry per alert.
type StreamWriter struct {
	client *redis.Client
	ctx    context.Context
	stream string
	maxLen int64
}

// NewStreamWriter connects to Redis and verifies the server answers.
// maxLen approximately caps the stream length; zero leaves it unbounded.
func NewStreamWriter(ctx context.Context, addr string, db int, stream string, maxLen int64) (*StreamWriter, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &StreamWriter{
		client: client,
		ctx:    ctx,
		stream: stream,
		maxLen: maxLen,
	}, nil
}

// Write adds the batch to the stream in a single round trip.
func (sw *StreamWriter) Write(alerts []*models.Alert) error {
	pipe := sw.client.Pipeline()
	for _, alert := range alerts {
		payload, err := json.Marshal(alert)
		if err != nil {
			return fmt.Errorf("encode alert %s: %w", alert.ProductID, err)
		}
		pipe.XAdd(sw.ctx, &redis.XAddArgs{
			Stream: sw.stream,
			MaxLen: sw.maxLen,
			Approx: sw.maxLen > 0,
			Values: map[string]interface{}{
				StreamField: string(payload),
				"reason":    alert.Reason,
			},
		})
	}
	if _, err := pipe.Exec(sw.ctx); err != nil {
		return fmt.Errorf("publish alerts to %s: %w", sw.stream, err)
	}
	return nil
}

// Close closes the Redis connection.
func (sw *StreamWriter) Close() error {
	return sw.client.Close()
}
