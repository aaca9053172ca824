package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBridge publishes changes to the local hub and to a Redis channel so
// that other instances can deliver them to their own subscribers. Changes
// received from Redis that originated here are ignored.
type RedisBridge struct {
	client  *redis.Client
	hub     *Hub
	channel string
	origin  string
	log     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRedisBridge(client *redis.Client, hub *Hub, channel string, log *zap.Logger) *RedisBridge {
	return &RedisBridge{
		client:  client,
		hub:     hub,
		channel: channel,
		origin:  uuid.NewString(),
		log:     log.Named("realtime.bridge"),
	}
}

func (b *RedisBridge) Publish(ctx context.Context, change Change) {
	b.hub.Publish(ctx, change)

	change.Origin = b.origin
	payload, err := json.Marshal(change)
	if err != nil {
		b.log.Warn("encode change failed", zap.Error(err))
		return
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.log.Warn("redis publish failed", zap.String("table", change.Table), zap.Error(err))
	}
}

// Start subscribes to the Redis channel and relays remote changes until Stop.
func (b *RedisBridge) Start(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case <-runCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				b.handleMessage(runCtx, msg.Payload)
			}
		}
	}()
	b.log.Info("realtime bridge started", zap.String("channel", b.channel))
	return nil
}

func (b *RedisBridge) Stop(context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	return nil
}

func (b *RedisBridge) handleMessage(ctx context.Context, payload string) {
	var change Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		b.log.Warn("decode change failed", zap.Error(err))
		return
	}
	if change.Origin == b.origin {
		return
	}
	b.hub.Publish(ctx, change)
}
