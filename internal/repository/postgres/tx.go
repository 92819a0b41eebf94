package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vedran77/ourchat/internal/domain"
)

// tx implements repository.Tx on top of a pgx transaction.
type tx struct {
	q querier
}

func (t *tx) requests() *RequestRepo { return &RequestRepo{q: t.q} }
func (t *tx) chats() *ChatRepo       { return &ChatRepo{q: t.q} }

// LockPair takes a transaction-scoped advisory lock on the pair key.
func (t *tx) LockPair(ctx context.Context, a, b uuid.UUID) error {
	_, err := t.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, domain.PairKey(a, b))
	return errors.Wrap(err, "lock pair")
}

func (t *tx) GetRequest(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error) {
	return t.requests().scanRequest(ctx, `
		SELECT id, sender_id, receiver_id, created_at
		FROM friend_requests
		WHERE id = $1
		FOR UPDATE`, id)
}

func (t *tx) FindRequestByPair(ctx context.Context, a, b uuid.UUID) (*domain.FriendRequest, error) {
	return t.requests().FindByPair(ctx, a, b)
}

func (t *tx) CreateRequest(ctx context.Context, req *domain.FriendRequest) error {
	return t.requests().create(ctx, req)
}

func (t *tx) DeleteRequest(ctx context.Context, id uuid.UUID) (bool, error) {
	return t.requests().delete(ctx, id)
}

func (t *tx) GetChat(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	return t.chats().lockChat(ctx, id)
}

func (t *tx) FindDirectChat(ctx context.Context, a, b uuid.UUID) (*domain.Chat, error) {
	return t.chats().FindDirect(ctx, a, b)
}

func (t *tx) CreateChat(ctx context.Context, c *domain.Chat) error {
	return t.chats().create(ctx, c)
}

func (t *tx) UpdateChat(ctx context.Context, c *domain.Chat) error {
	return t.chats().update(ctx, c)
}

func (t *tx) DeleteChat(ctx context.Context, id uuid.UUID) error {
	return t.chats().delete(ctx, id)
}
