package docstore

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/campuslink/commons/internal/models"
	"github.com/campuslink/commons/internal/storage"
)

func userKey(id string) string     { return prefixUser + id }
func emailKey(email string) string { return prefixEmail + email }

// CreateUser stores a new user and claims its email
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		taken, err := exists(txn, emailKey(user.Email))
		if err != nil {
			return err
		}
		if taken {
			return storage.ErrConflict
		}
		if err := txn.Set([]byte(emailKey(user.Email)), []byte(user.ID)); err != nil {
			return err
		}
		return setJSON(txn, userKey(user.ID), user)
	})
}

// GetUser retrieves a user by id
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user through the email index
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(emailKey(email)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, userKey(string(id)), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser replaces the stored user, keeping its block-list
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var current models.User
		if err := getJSON(txn, userKey(user.ID), &current); err != nil {
			return err
		}
		next := *user
		next.Email = current.Email
		next.BlockedUsers = current.BlockedUsers
		return setJSON(txn, userKey(user.ID), &next)
	})
}

// ListUsers returns every user, deleted ones included
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		users, err = scan[models.User](txn, prefixUser, nil)
		return err
	})
	return users, err
}

// ToggleBlock flips targetID's membership in userID's block-list
func (s *Store) ToggleBlock(ctx context.Context, userID, targetID string) (bool, error) {
	var blocked bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		var user models.User
		if err := getJSON(txn, userKey(userID), &user); err != nil {
			return err
		}
		found, err := exists(txn, userKey(targetID))
		if err != nil {
			return err
		}
		if !found {
			return storage.ErrNotFound
		}

		if user.HasBlocked(targetID) {
			kept := user.BlockedUsers[:0]
			for _, id := range user.BlockedUsers {
				if id != targetID {
					kept = append(kept, id)
				}
			}
			user.BlockedUsers = kept
			blocked = false
		} else {
			user.BlockedUsers = append(user.BlockedUsers, targetID)
			blocked = true
		}
		return setJSON(txn, userKey(userID), &user)
	})
	return blocked, err
}

// ListBlocked resolves userID's block-list. Ids that no longer resolve are skipped.
func (s *Store) ListBlocked(ctx context.Context, userID string) ([]*models.User, error) {
	var out []*models.User
	err := s.view(ctx, func(txn *badger.Txn) error {
		var user models.User
		if err := getJSON(txn, userKey(userID), &user); err != nil {
			return err
		}
		for _, id := range user.BlockedUsers {
			var blocked models.User
			err := getJSON(txn, userKey(id), &blocked)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, &blocked)
		}
		return nil
	})
	return out, err
}
