package kds

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultChannel = "restqr:kds"

type envelope struct {
	Origin string          `json:"origin"`
	Frame  json.RawMessage `json:"frame"`
}

// RedisRelay extends a Hub across instances. Events published here reach
// local subscribers directly and every other instance through Redis pub/sub.
type RedisRelay struct {
	hub     *Hub
	client  *redis.Client
	channel string
	origin  string
	log     logrus.FieldLogger
}

func NewRedisRelay(hub *Hub, client *redis.Client, channel string, log logrus.FieldLogger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{
		hub:     hub,
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		log:     log,
	}
}

// Publish delivers locally first; a Redis failure only affects remote
// instances and is returned for logging.
func (r *RedisRelay) Publish(event string, data interface{}) error {
	frame, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return err
	}
	r.hub.Broadcast(frame)

	payload, err := json.Marshal(envelope{Origin: r.origin, Frame: frame})
	if err != nil {
		return err
	}
	return r.client.Publish(context.Background(), r.channel, payload).Err()
}

// Start subscribes to the relay channel and returns once the subscription is
// confirmed. Remote frames are re-broadcast locally until ctx is cancelled.
func (r *RedisRelay) Start(ctx context.Context) error {
	ps := r.client.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return err
	}

	go func() {
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					r.log.WithError(err).Warn("discarding malformed relay frame")
					continue
				}
				if env.Origin == r.origin {
					continue
				}
				r.hub.Broadcast(env.Frame)
			}
		}
	}()

	r.log.WithField("channel", r.channel).Info("kitchen relay subscribed")
	return nil
}
