package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/vedran77/ourchat/internal/domain"
)

type RequestRepo struct {
	q querier
}

func NewRequestRepo(q querier) *RequestRepo {
	return &RequestRepo{q: q}
}

func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error) {
	return r.scanRequest(ctx, `
		SELECT id, sender_id, receiver_id, created_at
		FROM friend_requests
		WHERE id = $1`, id)
}

// FindByPair looks the pair up in either direction.
func (r *RequestRepo) FindByPair(ctx context.Context, a, b uuid.UUID) (*domain.FriendRequest, error) {
	return r.scanRequest(ctx, `
		SELECT id, sender_id, receiver_id, created_at
		FROM friend_requests
		WHERE pair_key = $1`, domain.PairKey(a, b))
}

func (r *RequestRepo) ListIncoming(ctx context.Context, receiverID uuid.UUID) ([]domain.FriendRequest, error) {
	query := `
		SELECT r.id, r.sender_id, r.receiver_id, r.created_at,
			u.id, u.name, u.avatar_url
		FROM friend_requests r
		JOIN users u ON r.sender_id = u.id
		WHERE r.receiver_id = $1
		ORDER BY r.created_at DESC`

	rows, err := r.q.Query(ctx, query, receiverID)
	if err != nil {
		return nil, errors.Wrap(err, "query incoming requests")
	}
	defer rows.Close()

	var reqs []domain.FriendRequest
	for rows.Next() {
		var req domain.FriendRequest
		var sender domain.UserSummary
		if err := rows.Scan(
			&req.ID, &req.SenderID, &req.ReceiverID, &req.CreatedAt,
			&sender.ID, &sender.Name, &sender.AvatarURL,
		); err != nil {
			return nil, errors.Wrap(err, "scan request")
		}
		req.Sender = &sender
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (r *RequestRepo) ListOutgoing(ctx context.Context, senderID uuid.UUID) ([]domain.FriendRequest, error) {
	query := `
		SELECT r.id, r.sender_id, r.receiver_id, r.created_at,
			u.id, u.name, u.avatar_url
		FROM friend_requests r
		JOIN users u ON r.receiver_id = u.id
		WHERE r.sender_id = $1
		ORDER BY r.created_at DESC`

	rows, err := r.q.Query(ctx, query, senderID)
	if err != nil {
		return nil, errors.Wrap(err, "query outgoing requests")
	}
	defer rows.Close()

	var reqs []domain.FriendRequest
	for rows.Next() {
		var req domain.FriendRequest
		var receiver domain.UserSummary
		if err := rows.Scan(
			&req.ID, &req.SenderID, &req.ReceiverID, &req.CreatedAt,
			&receiver.ID, &receiver.Name, &receiver.AvatarURL,
		); err != nil {
			return nil, errors.Wrap(err, "scan request")
		}
		req.Receiver = &receiver
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (r *RequestRepo) create(ctx context.Context, req *domain.FriendRequest) error {
	query := `
		INSERT INTO friend_requests (id, sender_id, receiver_id, pair_key, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.Exec(ctx, query, req.ID, req.SenderID, req.ReceiverID, req.PairKey(), req.CreatedAt)
	return errors.Wrap(err, "insert request")
}

func (r *RequestRepo) delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM friend_requests WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrap(err, "delete request")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RequestRepo) scanRequest(ctx context.Context, query string, arg any) (*domain.FriendRequest, error) {
	var req domain.FriendRequest
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&req.ID, &req.SenderID, &req.ReceiverID, &req.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan request")
	}
	return &req, nil
}
