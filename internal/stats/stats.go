// Package stats keeps per-class check-in counters in Redis.
package stats

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	fieldAccepted = "accepted"
	fieldRejected = "rejected"
)

// Counts of stored check-ins for one class.
type Counts struct {
	Accepted int64 `json:"aceptadas"`
	Rejected int64 `json:"rechazadas"`
}

// Counters reads and increments class counters.
type Counters struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Counters {
	return &Counters{rdb: rdb}
}

// Key of the hash holding a class's counters.
func Key(classID string) string {
	return "class:" + classID + ":checkins"
}

// Incr bumps the accepted or rejected counter of a class.
func (c *Counters) Incr(ctx context.Context, classID string, accepted bool) error {
	field := fieldRejected
	if accepted {
		field = fieldAccepted
	}
	return c.rdb.HIncrBy(ctx, Key(classID), field, 1).Err()
}

// Get returns counters for the given classes. Classes with no hash are
// omitted from the result.
func (c *Counters) Get(ctx context.Context, classIDs []string) (map[string]Counts, error) {
	out := make(map[string]Counts, len(classIDs))
	if len(classIDs) == 0 {
		return out, nil
	}
	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(classIDs))
	for i, id := range classIDs {
		cmds[i] = pipe.HGetAll(ctx, Key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}
	for i, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		out[classIDs[i]] = Counts{
			Accepted: parseCount(vals[fieldAccepted]),
			Rejected: parseCount(vals[fieldRejected]),
		}
	}
	return out, nil
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
