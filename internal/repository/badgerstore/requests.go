package badgerstore

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vedran77/ourchat/internal/domain"
)

type requestReader struct {
	db *badger.DB
}

func (r *requestReader) GetByID(_ context.Context, id uuid.UUID) (*domain.FriendRequest, error) {
	var req *domain.FriendRequest
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		req, err = loadRequest(txn, id)
		return err
	})
	return req, err
}

func (r *requestReader) FindByPair(_ context.Context, a, b uuid.UUID) (*domain.FriendRequest, error) {
	var req *domain.FriendRequest
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		req, err = findRequestByPair(txn, a, b)
		return err
	})
	return req, err
}

func (r *requestReader) ListIncoming(_ context.Context, receiverID uuid.UUID) ([]domain.FriendRequest, error) {
	return r.list(prefixRequestIn+receiverID.String()+":", func(req *domain.FriendRequest, txn *badger.Txn) error {
		sender, err := loadSummary(txn, req.SenderID)
		req.Sender = sender
		return err
	})
}

func (r *requestReader) ListOutgoing(_ context.Context, senderID uuid.UUID) ([]domain.FriendRequest, error) {
	return r.list(prefixRequestOut+senderID.String()+":", func(req *domain.FriendRequest, txn *badger.Txn) error {
		receiver, err := loadSummary(txn, req.ReceiverID)
		req.Receiver = receiver
		return err
	})
}

func (r *requestReader) list(prefix string, join func(*domain.FriendRequest, *badger.Txn) error) ([]domain.FriendRequest, error) {
	var reqs []domain.FriendRequest
	err := r.db.View(func(txn *badger.Txn) error {
		for _, raw := range keySuffixes(txn, prefix) {
			id, err := uuid.Parse(raw)
			if err != nil {
				return err
			}
			req, err := loadRequest(txn, id)
			if err != nil {
				return err
			}
			if req == nil {
				continue
			}
			if err := join(req, txn); err != nil {
				return err
			}
			reqs = append(reqs, *req)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
	return reqs, nil
}

func loadRequest(txn *badger.Txn, id uuid.UUID) (*domain.FriendRequest, error) {
	var req domain.FriendRequest
	ok, err := getJSON(txn, prefixRequest+id.String(), &req)
	if err != nil || !ok {
		return nil, err
	}
	return &req, nil
}

func findRequestByPair(txn *badger.Txn, a, b uuid.UUID) (*domain.FriendRequest, error) {
	raw, ok, err := getString(txn, prefixRequestPair+domain.PairKey(a, b))
	if err != nil || !ok {
		return nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return loadRequest(txn, id)
}

func requestIndexKeys(req *domain.FriendRequest) []string {
	return []string{
		prefixRequestPair + req.PairKey(),
		prefixRequestIn + req.ReceiverID.String() + ":" + req.ID.String(),
		prefixRequestOut + req.SenderID.String() + ":" + req.ID.String(),
	}
}

func putRequest(txn *badger.Txn, req *domain.FriendRequest) error {
	stored := *req
	stored.Sender, stored.Receiver = nil, nil
	if err := setJSON(txn, prefixRequest+req.ID.String(), stored); err != nil {
		return err
	}
	keys := requestIndexKeys(req)
	if err := txn.Set([]byte(keys[0]), []byte(req.ID.String())); err != nil {
		return err
	}
	for _, key := range keys[1:] {
		if err := txn.Set([]byte(key), nil); err != nil {
			return err
		}
	}
	return nil
}

func removeRequest(txn *badger.Txn, id uuid.UUID) (bool, error) {
	req, err := loadRequest(txn, id)
	if err != nil || req == nil {
		return false, err
	}
	keys := append([]string{prefixRequest + id.String()}, requestIndexKeys(req)...)
	return true, del(txn, keys...)
}
