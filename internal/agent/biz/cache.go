package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kart-io/logger"
	"github.com/redis/go-redis/v9"

	"github.com/kart-io/rag-agent/internal/model"
	"github.com/kart-io/rag-agent/pkg/utils/json"
)

const answerCachePrefix = "rag-agent:answer:"

// AnswerCache memoizes completed query outcomes in Redis. A nil client
// disables caching; every Redis error is swallowed so the cache can never
// fail a query.
type AnswerCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewAnswerCache creates an answer cache. client may be nil.
func NewAnswerCache(client redis.UniversalClient, ttl time.Duration) *AnswerCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AnswerCache{client: client, ttl: ttl}
}

// Key derives the cache key from everything that can change the answer:
// requester, session, question and metadata filter.
func (c *AnswerCache) Key(userID, sessionID, question string, filter map[string]string) string {
	h := sha256.New()
	h.Write([]byte(userID))
	h.Write([]byte{'|'})
	h.Write([]byte(sessionID))
	h.Write([]byte{'|'})
	h.Write([]byte(question))
	h.Write([]byte{'|'})
	if len(filter) > 0 {
		raw, _ := json.Marshal(filter)
		h.Write(raw)
	}
	return answerCachePrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached outcome for key, or nil on miss or any error.
func (c *AnswerCache) Get(ctx context.Context, key string) *model.Outcome {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warnw("answer cache get failed", "error", err)
		}
		return nil
	}
	var outcome model.Outcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		logger.Warnw("answer cache entry corrupt, ignoring", "error", err)
		return nil
	}
	return &outcome
}

// Set stores a completed outcome. Non-completed outcomes are never cached:
// authorization may be granted between queries and a cached denial would
// mask it.
func (c *AnswerCache) Set(ctx context.Context, key string, outcome *model.Outcome) {
	if c == nil || c.client == nil || outcome == nil || !outcome.Completed() {
		return
	}
	raw, err := json.Marshal(outcome)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.Warnw("answer cache set failed", "error", err)
	}
}
