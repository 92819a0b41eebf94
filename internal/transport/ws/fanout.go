package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vedran77/ourchat/internal/domain"
	"github.com/vedran77/ourchat/internal/presence"
)

var (
	ErrInvalidTargetSet = errors.New("fanout: no valid target users")
	ErrUnknownEventKind = errors.New("fanout: unknown event kind")
)

// Resolver finds the live connections of a set of users.
type Resolver interface {
	Resolve(userIDs []uuid.UUID) []presence.Conn
}

//go:generate go run go.uber.org/mock/mockgen -destination=../../mocks/mock_relay.go -package=mocks github.com/vedran77/ourchat/internal/transport/ws Relay

// Relay forwards encoded frames to the other server instances.
type Relay interface {
	Broadcast(ctx context.Context, targets []uuid.UUID, frame []byte) error
}

// Fanout delivers events to every live connection of the target users.
// Delivery is best effort: offline users and full buffers are skipped.
type Fanout struct {
	conns Resolver
	relay Relay
	log   *slog.Logger
}

// NewFanout builds a fanout. relay may be nil on a single node.
func NewFanout(conns Resolver, relay Relay, log *slog.Logger) *Fanout {
	return &Fanout{
		conns: conns,
		relay: relay,
		log:   log.With(slog.String("component", "fanout")),
	}
}

func (f *Fanout) Publish(ctx context.Context, kind domain.EventKind, targets []uuid.UUID, payload any) error {
	ids := lo.Uniq(lo.Filter(targets, func(id uuid.UUID, _ int) bool {
		return id != uuid.Nil
	}))
	if len(ids) == 0 {
		return ErrInvalidTargetSet
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEventKind, kind)
	}

	frame, err := encodeEvent(string(kind), payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", kind, err)
	}

	delivered := f.Deliver(ids, frame)
	f.log.Debug("event published",
		slog.String("kind", string(kind)),
		slog.Int("targets", len(ids)),
		slog.Int("delivered", delivered))

	if f.relay != nil {
		if err := f.relay.Broadcast(ctx, ids, frame); err != nil {
			f.log.Warn("relay broadcast failed", slog.String("kind", string(kind)), slog.Any("error", err))
		}
	}
	return nil
}

// Deliver writes an encoded frame to the local connections of targets and
// returns how many accepted it.
func (f *Fanout) Deliver(targets []uuid.UUID, frame []byte) int {
	delivered := 0
	for _, conn := range f.conns.Resolve(targets) {
		if conn.Send(frame) {
			delivered++
		}
	}
	return delivered
}
