// Package sink provides the live-publisher and history-sink
// implementations an Engine can be wired to. Both are pure collaborators:
// the engine only ever sees engine.LivePublisher/engine.HistorySink.
//
// RedisPublisher is grounded on data_manager/realtime_manager.py's
// RealtimeDataManager.push_snapshot (SET the current snapshot under a
// known key, PUBLISH a short notification on a pub/sub channel so an
// OPC UA bridge or GUI plotter can react without polling). Unlike the
// Python original, Publish here returns its error instead of swallowing
// it: the engine's own RunRealtime loop already isolates sink failures
// (logs a cerrors.SinkError and continues), so a second swallow layer
// in the sink itself would only hide the error from that one place.
package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/myorg/cyclesim/cyclesim/internal/engine"
)

const (
	currentSnapshotKey = "data_factory:current"
	defaultChannel     = "data_factory"
)

// RedisConfig configures a RedisPublisher.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Channel is the pub/sub channel notified after each push. Empty
	// means defaultChannel, matching RealtimeConfig.pubsub_channel's
	// own default.
	Channel string
}

// RedisPublisher pushes the current snapshot to Redis every cycle.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher builds a RedisPublisher. Connection establishment is
// lazy, matching go-redis's own idiom: no round-trip happens until the
// first command.
func NewRedisPublisher(cfg RedisConfig) *RedisPublisher {
	channel := cfg.Channel
	if channel == "" {
		channel = defaultChannel
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisPublisher{client: client, channel: channel}
}

// Channel reports the pub/sub channel this publisher notifies on.
func (p *RedisPublisher) Channel() string { return p.channel }

type redisSnapshotPayload struct {
	Timestamp  float64            `json:"timestamp"`
	Datetime   string             `json:"datetime"`
	CycleCount uint64             `json:"cycle_count"`
	SimTime    float64            `json:"sim_time"`
	Params     map[string]float64 `json:"params"`
}

type redisNotification struct {
	Timestamp  float64 `json:"timestamp"`
	CycleCount uint64  `json:"cycle_count"`
}

// Publish sets data_factory:current to the JSON-encoded snapshot and
// publishes a small notification naming the cycle, mirroring
// push_snapshot. ctx bounds both round trips; the engine's publish
// worker always calls this with a deadline derived from the cycle rate,
// so a hung connection surfaces as a context.DeadlineExceeded error
// rather than blocking forever.
func (p *RedisPublisher) Publish(ctx context.Context, snap engine.Snapshot) error {
	payload := redisSnapshotPayload{
		Timestamp:  snap.SimTime,
		Datetime:   snap.TimeStr,
		CycleCount: snap.CycleCount,
		SimTime:    snap.SimTime,
		Params:     snap.Values,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := p.client.Set(ctx, currentSnapshotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", currentSnapshotKey, err)
	}

	note, err := json.Marshal(redisNotification{Timestamp: snap.SimTime, CycleCount: snap.CycleCount})
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, note).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH %s: %w", p.channel, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
