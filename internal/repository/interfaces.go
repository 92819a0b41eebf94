package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vedran77/ourchat/internal/domain"
)

// ErrConflict is returned by Store.InTx when the transaction lost a race
// with a concurrent one and was rolled back. Callers may retry once.
var ErrConflict = errors.New("repository: transaction conflict")

// Lookups return (nil, nil) when the record does not exist.

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error)
	Search(ctx context.Context, excludeID uuid.UUID, name string, limit int) ([]domain.User, error)
}

type RequestReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error)
	ListIncoming(ctx context.Context, receiverID uuid.UUID) ([]domain.FriendRequest, error)
	ListOutgoing(ctx context.Context, senderID uuid.UUID) ([]domain.FriendRequest, error)
	FindByPair(ctx context.Context, a, b uuid.UUID) (*domain.FriendRequest, error)
}

type ChatReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error)
	FindDirect(ctx context.Context, a, b uuid.UUID) (*domain.Chat, error)
	ListByMember(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error)
}

// Tx is the unit of work for friend request and chat mutations. Reads made
// through a Tx take part in the transaction: concurrent writers to the same
// records either block or make the commit fail with ErrConflict.
type Tx interface {
	// LockPair serializes transactions that touch the same user pair.
	LockPair(ctx context.Context, a, b uuid.UUID) error

	GetRequest(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error)
	FindRequestByPair(ctx context.Context, a, b uuid.UUID) (*domain.FriendRequest, error)
	CreateRequest(ctx context.Context, req *domain.FriendRequest) error
	// DeleteRequest reports whether the record still existed.
	DeleteRequest(ctx context.Context, id uuid.UUID) (bool, error)

	GetChat(ctx context.Context, id uuid.UUID) (*domain.Chat, error)
	FindDirectChat(ctx context.Context, a, b uuid.UUID) (*domain.Chat, error)
	CreateChat(ctx context.Context, chat *domain.Chat) error
	// UpdateChat persists name, creator and the member list of chat.
	UpdateChat(ctx context.Context, chat *domain.Chat) error
	DeleteChat(ctx context.Context, id uuid.UUID) error
}

type Store interface {
	Users() UserRepository
	Requests() RequestReader
	Chats() ChatReader
	// InTx runs fn in a transaction. It commits when fn returns nil and
	// rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
