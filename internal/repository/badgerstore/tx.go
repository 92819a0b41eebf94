package badgerstore

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vedran77/ourchat/internal/domain"
)

type tx struct {
	txn *badger.Txn
}

// LockPair reads and rewrites the pair's lock key. Two transactions that
// both lock the same pair conflict at commit, so the later one fails.
func (t *tx) LockPair(_ context.Context, a, b uuid.UUID) error {
	key := prefixPairLock + domain.PairKey(a, b)
	if _, err := exists(t.txn, key); err != nil {
		return err
	}
	return t.txn.Set([]byte(key), nil)
}

func (t *tx) GetRequest(_ context.Context, id uuid.UUID) (*domain.FriendRequest, error) {
	return loadRequest(t.txn, id)
}

func (t *tx) FindRequestByPair(_ context.Context, a, b uuid.UUID) (*domain.FriendRequest, error) {
	return findRequestByPair(t.txn, a, b)
}

func (t *tx) CreateRequest(_ context.Context, req *domain.FriendRequest) error {
	return putRequest(t.txn, req)
}

func (t *tx) DeleteRequest(_ context.Context, id uuid.UUID) (bool, error) {
	return removeRequest(t.txn, id)
}

func (t *tx) GetChat(_ context.Context, id uuid.UUID) (*domain.Chat, error) {
	return loadChat(t.txn, id)
}

func (t *tx) FindDirectChat(_ context.Context, a, b uuid.UUID) (*domain.Chat, error) {
	return findDirect(t.txn, a, b)
}

func (t *tx) CreateChat(_ context.Context, chat *domain.Chat) error {
	return putChat(t.txn, chat)
}

func (t *tx) UpdateChat(_ context.Context, chat *domain.Chat) error {
	return putChat(t.txn, chat)
}

func (t *tx) DeleteChat(_ context.Context, id uuid.UUID) error {
	return removeChat(t.txn, id)
}
