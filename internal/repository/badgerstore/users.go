package badgerstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vedran77/ourchat/internal/domain"
	"github.com/vedran77/ourchat/internal/repository"
)

// userRecord is the stored form of domain.User, which hides its hash from JSON.
type userRecord struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Bio          string    `json:"bio"`
	AvatarURL    string    `json:"avatar_url"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toRecord(u *domain.User) userRecord {
	return userRecord{
		ID: u.ID, Username: u.Username, Name: u.Name, Bio: u.Bio, AvatarURL: u.AvatarURL,
		PasswordHash: u.PasswordHash, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (r userRecord) toUser() domain.User {
	return domain.User{
		ID: r.ID, Username: r.Username, Name: r.Name, Bio: r.Bio, AvatarURL: r.AvatarURL,
		PasswordHash: r.PasswordHash, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type userRepo struct {
	db *badger.DB
}

// Create returns repository.ErrConflict when the username is taken.
func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	return r.db.Update(func(txn *badger.Txn) error {
		nameKey := prefixUsername + strings.ToLower(user.Username)
		taken, err := exists(txn, nameKey)
		if err != nil {
			return err
		}
		if taken {
			return repository.ErrConflict
		}
		if err := setJSON(txn, prefixUser+user.ID.String(), toRecord(user)); err != nil {
			return err
		}
		return txn.Set([]byte(nameKey), []byte(user.ID.String()))
	})
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	var user *domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = loadUser(txn, id)
		return err
	})
	return user, err
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	var user *domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		raw, ok, err := getString(txn, prefixUsername+strings.ToLower(username))
		if err != nil || !ok {
			return err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return err
		}
		user, err = loadUser(txn, id)
		return err
	})
	return user, err
}

func (r *userRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]domain.User, error) {
	var users []domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			u, err := loadUser(txn, id)
			if err != nil {
				return err
			}
			if u != nil {
				users = append(users, *u)
			}
		}
		return nil
	})
	sortByName(users)
	return users, err
}

func (r *userRepo) Search(_ context.Context, excludeID uuid.UUID, name string, limit int) ([]domain.User, error) {
	needle := strings.ToLower(name)
	var users []domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixUser)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec userRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			if rec.ID == excludeID || !strings.Contains(strings.ToLower(rec.Name), needle) {
				continue
			}
			users = append(users, rec.toUser())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortByName(users)
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func loadUser(txn *badger.Txn, id uuid.UUID) (*domain.User, error) {
	var rec userRecord
	ok, err := getJSON(txn, prefixUser+id.String(), &rec)
	if err != nil || !ok {
		return nil, err
	}
	u := rec.toUser()
	return &u, nil
}

func loadSummary(txn *badger.Txn, id uuid.UUID) (*domain.UserSummary, error) {
	u, err := loadUser(txn, id)
	if err != nil || u == nil {
		return nil, err
	}
	s := u.Summary()
	return &s, nil
}

func sortByName(users []domain.User) {
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Name < users[j].Name
	})
}
