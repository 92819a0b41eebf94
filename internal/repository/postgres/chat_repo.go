package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/vedran77/ourchat/internal/domain"
)

const chatSelect = `
	SELECT c.id, c.name, c.group_chat, c.creator_id, c.created_at, c.updated_at,
		ARRAY(SELECT m.user_id FROM chat_members m WHERE m.chat_id = c.id ORDER BY m.seq) AS members
	FROM chats c`

type ChatRepo struct {
	q querier
}

func NewChatRepo(q querier) *ChatRepo {
	return &ChatRepo{q: q}
}

func (r *ChatRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	return r.scanChat(ctx, chatSelect+` WHERE c.id = $1`, id)
}

func (r *ChatRepo) FindDirect(ctx context.Context, a, b uuid.UUID) (*domain.Chat, error) {
	return r.scanChat(ctx, chatSelect+` WHERE c.direct_key = $1`, domain.PairKey(a, b))
}

func (r *ChatRepo) ListByMember(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	query := chatSelect + `
		WHERE EXISTS (SELECT 1 FROM chat_members m WHERE m.chat_id = c.id AND m.user_id = $1)
		ORDER BY c.updated_at DESC`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query chats")
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		var c domain.Chat
		if err := rows.Scan(
			&c.ID, &c.Name, &c.GroupChat, &c.CreatorID, &c.CreatedAt, &c.UpdatedAt, &c.Members,
		); err != nil {
			return nil, errors.Wrap(err, "scan chat")
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// lockChat reads a chat row under FOR UPDATE. Member rows are only changed
// by holders of that lock.
func (r *ChatRepo) lockChat(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	var c domain.Chat
	err := r.q.QueryRow(ctx, `
		SELECT id, name, group_chat, creator_id, created_at, updated_at
		FROM chats
		WHERE id = $1
		FOR UPDATE`, id).Scan(
		&c.ID, &c.Name, &c.GroupChat, &c.CreatorID, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lock chat")
	}

	err = r.q.QueryRow(ctx,
		`SELECT ARRAY(SELECT user_id FROM chat_members WHERE chat_id = $1 ORDER BY seq)`, id,
	).Scan(&c.Members)
	if err != nil {
		return nil, errors.Wrap(err, "load members")
	}
	return &c, nil
}

func (r *ChatRepo) create(ctx context.Context, c *domain.Chat) error {
	var directKey *string
	if key := c.DirectKey(); key != "" {
		directKey = &key
	}

	query := `
		INSERT INTO chats (id, name, group_chat, creator_id, direct_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.q.Exec(ctx, query,
		c.ID, c.Name, c.GroupChat, c.CreatorID, directKey, c.CreatedAt, c.UpdatedAt,
	); err != nil {
		return errors.Wrap(err, "insert chat")
	}
	return r.insertMembers(ctx, c.ID, c.Members)
}

// update writes name and creator and brings the member rows in line with
// c.Members. Surviving members keep their join position.
func (r *ChatRepo) update(ctx context.Context, c *domain.Chat) error {
	if _, err := r.q.Exec(ctx,
		`UPDATE chats SET name = $2, creator_id = $3, updated_at = $4 WHERE id = $1`,
		c.ID, c.Name, c.CreatorID, c.UpdatedAt,
	); err != nil {
		return errors.Wrap(err, "update chat")
	}

	if _, err := r.q.Exec(ctx,
		`DELETE FROM chat_members WHERE chat_id = $1 AND NOT (user_id = ANY($2))`,
		c.ID, c.Members,
	); err != nil {
		return errors.Wrap(err, "delete members")
	}
	return r.insertMembers(ctx, c.ID, c.Members)
}

func (r *ChatRepo) insertMembers(ctx context.Context, chatID uuid.UUID, members []uuid.UUID) error {
	// One statement per member so seq follows slice order.
	for _, userID := range members {
		if _, err := r.q.Exec(ctx,
			`INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			chatID, userID,
		); err != nil {
			return errors.Wrap(err, "insert member")
		}
	}
	return nil
}

func (r *ChatRepo) delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.q.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	return errors.Wrap(err, "delete chat")
}

func (r *ChatRepo) scanChat(ctx context.Context, query string, arg any) (*domain.Chat, error) {
	var c domain.Chat
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.Name, &c.GroupChat, &c.CreatorID, &c.CreatedAt, &c.UpdatedAt, &c.Members,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan chat")
	}
	return &c, nil
}
