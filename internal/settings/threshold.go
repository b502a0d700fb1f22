// Package settings holds runtime-adjustable deployment settings.
package settings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ThresholdKey stores the proximity threshold override in meters.
const ThresholdKey = "settings:proximity_threshold_m"

// Static is a fixed threshold.
type Static float64

func (s Static) ProximityThresholdMeters(context.Context) float64 { return float64(s) }

// Threshold reads a Redis override on every call and falls back to the
// configured default when the key is missing, invalid or Redis is unreachable.
type Threshold struct {
	rdb      *redis.Client
	fallback float64
	log      *zap.Logger
}

func NewThreshold(rdb *redis.Client, fallback float64, log *zap.Logger) *Threshold {
	if log == nil {
		log = zap.NewNop()
	}
	return &Threshold{rdb: rdb, fallback: fallback, log: log}
}

// ProximityThresholdMeters never fails; check-ins must not depend on Redis.
func (t *Threshold) ProximityThresholdMeters(ctx context.Context) float64 {
	v, _, err := t.Current(ctx)
	if err != nil {
		t.log.Warn("threshold override unavailable, using default", zap.Float64("default", t.fallback), zap.Error(err))
		return t.fallback
	}
	return v
}

// Current returns the effective threshold and whether it is overridden.
func (t *Threshold) Current(ctx context.Context) (float64, bool, error) {
	if t.rdb == nil {
		return t.fallback, false, nil
	}
	raw, err := t.rdb.Get(ctx, ThresholdKey).Result()
	if errors.Is(err, redis.Nil) {
		return t.fallback, false, nil
	}
	if err != nil {
		return t.fallback, false, err
	}
	v, err := ParseMeters(raw)
	if err != nil {
		return t.fallback, false, fmt.Errorf("stored threshold %q: %w", raw, err)
	}
	return v, true, nil
}

// Default is the configured threshold used when no override exists.
func (t *Threshold) Default() float64 { return t.fallback }

// Set stores an override.
func (t *Threshold) Set(ctx context.Context, meters float64) error {
	if err := checkMeters(meters); err != nil {
		return err
	}
	if t.rdb == nil {
		return errors.New("settings: redis not configured")
	}
	return t.rdb.Set(ctx, ThresholdKey, strconv.FormatFloat(meters, 'f', -1, 64), 0).Err()
}

// Reset removes the override.
func (t *Threshold) Reset(ctx context.Context) error {
	if t.rdb == nil {
		return nil
	}
	return t.rdb.Del(ctx, ThresholdKey).Err()
}

// ParseMeters parses a positive finite distance.
func ParseMeters(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v, checkMeters(v)
}

func checkMeters(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("settings: threshold must be a positive number of meters, got %v", v)
	}
	return nil
}
