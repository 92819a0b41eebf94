package badgerstore

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vedran77/ourchat/internal/domain"
)

type chatReader struct {
	db *badger.DB
}

func (r *chatReader) GetByID(_ context.Context, id uuid.UUID) (*domain.Chat, error) {
	var chat *domain.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		chat, err = loadChat(txn, id)
		return err
	})
	return chat, err
}

func (r *chatReader) FindDirect(_ context.Context, a, b uuid.UUID) (*domain.Chat, error) {
	var chat *domain.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		chat, err = findDirect(txn, a, b)
		return err
	})
	return chat, err
}

func (r *chatReader) ListByMember(_ context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	var chats []domain.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		for _, raw := range keySuffixes(txn, memberPrefix(userID)) {
			id, err := uuid.Parse(raw)
			if err != nil {
				return err
			}
			chat, err := loadChat(txn, id)
			if err != nil {
				return err
			}
			if chat != nil {
				chats = append(chats, *chat)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

func memberPrefix(userID uuid.UUID) string {
	return prefixMember + userID.String() + ":"
}

func memberKey(userID, chatID uuid.UUID) string {
	return memberPrefix(userID) + chatID.String()
}

func loadChat(txn *badger.Txn, id uuid.UUID) (*domain.Chat, error) {
	var chat domain.Chat
	ok, err := getJSON(txn, prefixChat+id.String(), &chat)
	if err != nil || !ok {
		return nil, err
	}
	return &chat, nil
}

func findDirect(txn *badger.Txn, a, b uuid.UUID) (*domain.Chat, error) {
	raw, ok, err := getString(txn, prefixDirect+domain.PairKey(a, b))
	if err != nil || !ok {
		return nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return loadChat(txn, id)
}

func putChat(txn *badger.Txn, chat *domain.Chat) error {
	old, err := loadChat(txn, chat.ID)
	if err != nil {
		return err
	}

	var before []uuid.UUID
	if old != nil {
		before = old.Members
	}
	gone, added := lo.Difference(before, chat.Members)

	for _, userID := range gone {
		if err := del(txn, memberKey(userID, chat.ID)); err != nil {
			return err
		}
	}
	for _, userID := range added {
		if err := txn.Set([]byte(memberKey(userID, chat.ID)), nil); err != nil {
			return err
		}
	}

	if old == nil {
		if key := chat.DirectKey(); key != "" {
			if err := txn.Set([]byte(prefixDirect+key), []byte(chat.ID.String())); err != nil {
				return err
			}
		}
	}
	return setJSON(txn, prefixChat+chat.ID.String(), chat)
}

func removeChat(txn *badger.Txn, id uuid.UUID) error {
	chat, err := loadChat(txn, id)
	if err != nil || chat == nil {
		return err
	}

	keys := []string{prefixChat + id.String()}
	if key := chat.DirectKey(); key != "" {
		keys = append(keys, prefixDirect+key)
	}
	for _, userID := range chat.Members {
		keys = append(keys, memberKey(userID, id))
	}
	return del(txn, keys...)
}
