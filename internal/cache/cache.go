// Package cache keeps decoded quizzes close to the quiz engine so that
// starting an attempt does not hit the database every time.
package cache

import (
	"context"
	"math/rand"
	"time"

	"github.com/vidyavistaar/portal/internal/model"
)

// QuizLoader fetches a quiz from the backing store.
type QuizLoader interface {
	GetQuiz(ctx context.Context, quizID string) (model.Quiz, error)
}

// QuizCache is satisfied by both the in-memory and the Redis cache.
type QuizCache interface {
	GetQuiz(ctx context.Context, quizID string) (model.Quiz, error)
	Invalidate(ctx context.Context, quizID string) error
}

func ttlWithJitter(rnd *rand.Rand, ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitterMax := int64(ttl) / 10
	return ttl + time.Duration(rnd.Int63n(jitterMax+1))
}
