package brokerstream

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisRelay fans hub events out over a Redis pub/sub channel, the
// multi-replica analogue of the teacher's CachedStore Redis wrapper — but
// used purely for transient pub/sub, never for reads that back engine
// state. The broker's own account state stays process-resident regardless
// of whether a relay is configured.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
}

// NewRedisRelay wraps a Redis client for the given pub/sub channel.
func NewRedisRelay(rdb *redis.Client, channel string) *RedisRelay {
	return &RedisRelay{rdb: rdb, channel: channel}
}

// Publish fans a payload out to the relay's channel, best-effort.
func (r *RedisRelay) Publish(payload []byte) {
	if err := r.rdb.Publish(context.Background(), r.channel, payload).Err(); err != nil {
		slog.Warn("broker stream redis publish failed", "err", err)
	}
}

// Subscribe returns a channel of raw event payloads received from every
// broker replica publishing to this relay's channel, for a façade to
// re-broadcast to its own local WebSocket clients.
func (r *RedisRelay) Subscribe(ctx context.Context) <-chan []byte {
	out := make(chan []byte, 256)
	sub := r.rdb.Subscribe(ctx, r.channel)

	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
				}
			}
		}
	}()
	return out
}
