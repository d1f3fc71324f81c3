package cache

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vidyavistaar/portal/internal/model"
)

// Memory caches quizzes in process with a TTL. Callers always receive a deep copy.
type Memory struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      model.Quiz
	expiresAt time.Time
}

func NewMemory(loader QuizLoader, ttl time.Duration) *Memory {
	return &Memory{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (m *Memory) lookup(quizID string, now time.Time) (model.Quiz, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.cache[quizID]
	if !ok || !entry.expiresAt.After(now) {
		return model.Quiz{}, false
	}
	return entry.quiz.Clone(), true
}

func (m *Memory) GetQuiz(ctx context.Context, quizID string) (model.Quiz, error) {
	if q, ok := m.lookup(quizID, m.clock()); ok {
		return q, nil
	}

	result, err, _ := m.sf.Do(quizID, func() (interface{}, error) {
		now := m.clock()
		if q, ok := m.lookup(quizID, now); ok {
			return q, nil
		}

		quiz, err := m.loader.GetQuiz(ctx, quizID)
		if err != nil {
			return model.Quiz{}, err
		}

		m.mu.Lock()
		m.cache[quizID] = cachedQuiz{
			quiz:      quiz.Clone(),
			expiresAt: now.Add(ttlWithJitter(m.rnd, m.ttl)),
		}
		m.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return model.Quiz{}, err
	}
	return result.(model.Quiz).Clone(), nil
}

// Invalidate drops a cached quiz.
func (m *Memory) Invalidate(_ context.Context, quizID string) error {
	m.mu.Lock()
	delete(m.cache, quizID)
	m.mu.Unlock()
	return nil
}
