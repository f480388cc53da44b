package docstore

import (
	"context"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/campuslink/commons/internal/models"
)

func notifPrefix(recipientID string) string { return prefixNotif + recipientID + "/" }
func notifKey(recipientID, id string) string { return notifPrefix(recipientID) + id }

// CreateNotification stores a notification under its recipient
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, notifKey(n.RecipientID, n.ID), n)
	})
}

// ListNotifications returns the recipient's notifications newest first
func (s *Store) ListNotifications(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	var out []*models.Notification
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		out, err = scan[models.Notification](txn, notifPrefix(recipientID), nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkNotificationRead marks one of the recipient's notifications read
func (s *Store) MarkNotificationRead(ctx context.Context, id, recipientID string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var n models.Notification
		if err := getJSON(txn, notifKey(recipientID, id), &n); err != nil {
			return err
		}
		if n.Read {
			return nil
		}
		n.Read = true
		n.UpdatedAt = time.Now().UTC()
		return setJSON(txn, notifKey(recipientID, id), &n)
	})
}

// MarkAllNotificationsRead marks every unread notification of the recipient
// read and returns how many changed
func (s *Store) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int, error) {
	var changed int
	err := s.update(ctx, func(txn *badger.Txn) error {
		changed = 0
		unread, err := scan(txn, notifPrefix(recipientID), func(n *models.Notification) bool {
			return !n.Read
		})
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, n := range unread {
			n.Read = true
			n.UpdatedAt = now
			if err := setJSON(txn, notifKey(recipientID, n.ID), n); err != nil {
				return err
			}
		}
		changed = len(unread)
		return nil
	})
	return changed, err
}

// CountUnread counts the recipient's unread notifications
func (s *Store) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var unread []*models.Notification
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		unread, err = scan(txn, notifPrefix(recipientID), func(n *models.Notification) bool {
			return !n.Read
		})
		return err
	})
	return len(unread), err
}
