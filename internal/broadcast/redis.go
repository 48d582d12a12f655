package broadcast

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xelth-com/loci/internal/metrics"
)

const relayQueueSize = 1024

type envelope struct {
	topic   string
	payload []byte
}

// RedisRelay shares location messages between server instances. Publish
// goes to Redis; messages received on the subscribed pattern are handed to
// the local publisher (the websocket hub), so every instance delivers each
// update exactly once to its own subscribers.
type RedisRelay struct {
	client *redis.Client
	local  Publisher
	queue  chan envelope
}

// NewRedisRelay creates a relay; call Run to start it
func NewRedisRelay(client *redis.Client, local Publisher) *RedisRelay {
	return &RedisRelay{
		client: client,
		local:  local,
		queue:  make(chan envelope, relayQueueSize),
	}
}

// Publish enqueues the message and returns immediately. When the queue is
// full the message is dropped.
func (r *RedisRelay) Publish(topic string, payload []byte) {
	select {
	case r.queue <- envelope{topic: topic, payload: payload}:
	default:
		metrics.BroadcastDroppedTotal.Inc()
		log.Printf("⚠️ Redis relay queue full, dropping message for %s", topic)
	}
}

// Run pumps the outgoing queue and the incoming subscription until ctx ends
func (r *RedisRelay) Run(ctx context.Context) {
	sub := r.client.PSubscribe(ctx, TopicPrefix+"*")
	defer sub.Close()

	go r.publishLoop(ctx)

	ch := sub.Channel()
	log.Printf("📡 Redis relay subscribed to %s*", TopicPrefix)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.deliver(msg.Channel, msg.Payload)
		}
	}
}

// deliver hands a message received from Redis to the local publisher.
// Channels outside the location namespace are ignored.
func (r *RedisRelay) deliver(channel, payload string) {
	if !IsLocationTopic(channel) {
		return
	}
	r.local.Publish(channel, []byte(payload))
}

func (r *RedisRelay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-r.queue:
			pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := r.client.Publish(pubCtx, env.topic, env.payload).Err(); err != nil {
				log.Printf("⚠️ Redis publish to %s failed: %v", env.topic, err)
			}
			cancel()
		}
	}
}

// OpenRedis returns a client for addr, or nil when addr is empty
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}
