package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/vidyavistaar/portal/internal/model"
)

// Redis caches quizzes as JSON strings under portal:quiz:{id} and falls back
// to the loader on a miss. Redis errors degrade to a direct load.
type Redis struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRedis(client *redis.Client, loader QuizLoader, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func quizKey(quizID string) string {
	return "portal:quiz:" + quizID
}

func (r *Redis) cached(ctx context.Context, quizID string) (model.Quiz, bool) {
	raw, err := r.client.Get(ctx, quizKey(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("quiz cache read failed", "quiz_id", quizID, "error", err)
		}
		return model.Quiz{}, false
	}
	var q model.Quiz
	if err := json.Unmarshal(raw, &q); err != nil {
		slog.Warn("quiz cache entry corrupt", "quiz_id", quizID, "error", err)
		return model.Quiz{}, false
	}
	return q, true
}

func (r *Redis) GetQuiz(ctx context.Context, quizID string) (model.Quiz, error) {
	if q, ok := r.cached(ctx, quizID); ok {
		return q, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check in case another caller filled it.
		if q, ok := r.cached(ctx, quizID); ok {
			return q, nil
		}

		quiz, err := r.loader.GetQuiz(ctx, quizID)
		if err != nil {
			return model.Quiz{}, err
		}

		data, err := json.Marshal(quiz)
		if err != nil {
			return model.Quiz{}, err
		}
		r.mu.Lock()
		ttl := ttlWithJitter(r.rnd, r.ttl)
		r.mu.Unlock()
		if err := r.client.Set(ctx, quizKey(quizID), data, ttl).Err(); err != nil {
			slog.Warn("quiz cache write failed", "quiz_id", quizID, "error", err)
		}
		return quiz, nil
	})
	if err != nil {
		return model.Quiz{}, err
	}
	return result.(model.Quiz).Clone(), nil
}

// Invalidate deletes a cached quiz.
func (r *Redis) Invalidate(ctx context.Context, quizID string) error {
	return r.client.Del(ctx, quizKey(quizID)).Err()
}
