// Package relay carries fan-out frames between server instances over Redis
// pub/sub, so a user connected to another node still gets their events.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Deliverer writes a frame to the local connections of targets.
type Deliverer interface {
	Deliver(targets []uuid.UUID, frame []byte) int
}

type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("relay: addr is required")
	}
	if c.Channel == "" {
		return errors.New("relay: channel is required")
	}
	return nil
}

type envelope struct {
	Origin  uuid.UUID       `json:"origin"`
	Targets []uuid.UUID     `json:"targets"`
	Frame   json.RawMessage `json:"frame"`
}

// Redis publishes locally produced frames and delivers frames published by
// other nodes. Each node tags its messages with a random origin id and skips
// its own.
type Redis struct {
	client  *redis.Client
	channel string
	origin  uuid.UUID
	log     *slog.Logger
}

// Connect dials Redis and checks the connection.
func Connect(ctx context.Context, cfg Config, log *slog.Logger) (*Redis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "relay: ping redis")
	}

	return New(client, cfg.Channel, log), nil
}

func New(client *redis.Client, channel string, log *slog.Logger) *Redis {
	origin := uuid.New()
	return &Redis{
		client:  client,
		channel: channel,
		origin:  origin,
		log: log.With(
			slog.String("component", "relay"),
			slog.String("origin", origin.String())),
	}
}

func (r *Redis) Broadcast(ctx context.Context, targets []uuid.UUID, frame []byte) error {
	data, err := json.Marshal(envelope{Origin: r.origin, Targets: targets, Frame: frame})
	if err != nil {
		return errors.Wrap(err, "relay: encode envelope")
	}
	return errors.Wrap(r.client.Publish(ctx, r.channel, data).Err(), "relay: publish")
}

// Run delivers remote frames through d until ctx ends.
func (r *Redis) Run(ctx context.Context, d Deliverer) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "relay: subscribe")
	}
	r.log.Info("relay subscribed", slog.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle([]byte(msg.Payload), d)
		}
	}
}

func (r *Redis) handle(payload []byte, d Deliverer) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.log.Warn("dropping malformed relay message", slog.Any("error", err))
		return
	}
	if env.Origin == r.origin {
		return
	}
	n := d.Deliver(env.Targets, env.Frame)
	r.log.Debug("relayed frame delivered", slog.Int("delivered", n))
}

// presenceKey holds the number of nodes a user is online on.
func (r *Redis) presenceKey(userID uuid.UUID) string {
	return r.channel + ":presence:" + userID.String()
}

// Join records that this node gained the user's first local connection. It
// reports whether no other node had the user online.
func (r *Redis) Join(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := r.client.Incr(ctx, r.presenceKey(userID)).Result()
	if err != nil {
		return false, errors.Wrap(err, "relay: presence join")
	}
	return n == 1, nil
}

// Leave records that this node lost the user's last local connection. It
// reports whether the user is now offline on every node.
func (r *Redis) Leave(ctx context.Context, userID uuid.UUID) (bool, error) {
	key := r.presenceKey(userID)
	n, err := r.client.Decr(ctx, key).Result()
	if err != nil {
		return false, errors.Wrap(err, "relay: presence leave")
	}
	if n > 0 {
		return false, nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Warn("clearing presence count", slog.Any("error", err))
	}
	return true, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
