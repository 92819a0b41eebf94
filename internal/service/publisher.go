//go:generate go run go.uber.org/mock/mockgen -source=publisher.go -destination=../mocks/mock_publisher.go -package=mocks
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vedran77/ourchat/internal/domain"
	"github.com/vedran77/ourchat/internal/repository"
)

// Publisher pushes an event to the live connections of the target users.
type Publisher interface {
	Publish(ctx context.Context, kind domain.EventKind, targets []uuid.UUID, payload any) error
}

// runTx runs fn in one transaction and retries it once when the store
// reports a conflict. fn must reset anything it captured from a previous run.
func runTx(ctx context.Context, store repository.Store, fn func(tx repository.Tx) error) error {
	err := store.InTx(ctx, fn)
	if !errors.Is(err, repository.ErrConflict) {
		return err
	}
	err = store.InTx(ctx, fn)
	if errors.Is(err, repository.ErrConflict) {
		return ErrTransactionConflict
	}
	return err
}

// publish sends an event after a committed change. Failures are logged
// only: the change has already happened.
func publish(ctx context.Context, pub Publisher, log *slog.Logger, kind domain.EventKind, targets []uuid.UUID, payload any) {
	if err := pub.Publish(ctx, kind, targets, payload); err != nil {
		log.Warn("event not published",
			slog.String("kind", string(kind)),
			slog.Int("targets", len(targets)),
			slog.Any("error", err))
	}
}
