package store

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/Chenghao-Wen/NoteTree/internal/models"
)

const (
	// StreamIndexing is the durable queue of note-indexing jobs.
	StreamIndexing = "stream:indexing"
	// StreamSearch is the durable queue of semantic-search jobs.
	StreamSearch = "stream:search"
	// ChannelAIResults is the broadcast channel the AI worker publishes
	// results to. Fire-and-forget: disconnected subscribers miss messages.
	ChannelAIResults = "channel:ai_results"
)

// RedisStore handles Redis operations: durable job streams and the results
// pub/sub channel.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for the rate limiter and the relay.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// AppendIndexingJob appends a job to the indexing stream. Entry fields are
// the contract with the worker: noteId, faissId, userId, action, content.
func (s *RedisStore) AppendIndexingJob(ctx context.Context, job models.IndexingJob) error {
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamIndexing,
		Values: map[string]interface{}{
			"noteId":  job.NoteID,
			"faissId": strconv.FormatInt(job.FaissID, 10),
			"userId":  job.UserID,
			"action":  "UPSERT",
			"content": job.Content,
		},
	}).Err()
}

// AppendSearchJob appends a job to the search stream.
func (s *RedisStore) AppendSearchJob(ctx context.Context, job models.SearchJob) error {
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamSearch,
		Values: map[string]interface{}{
			"jobId":     job.JobID,
			"userId":    job.UserID,
			"query":     job.Query,
			"timestamp": strconv.FormatInt(job.Timestamp, 10),
		},
	}).Err()
}
