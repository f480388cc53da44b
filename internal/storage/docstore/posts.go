package docstore

import (
	"context"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/campuslink/commons/internal/models"
	"github.com/campuslink/commons/internal/storage"
)

func postKey(id string) string { return prefixPost + id }

// CreatePost stores a new post
func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		taken, err := exists(txn, postKey(post.ID))
		if err != nil {
			return err
		}
		if taken {
			return storage.ErrConflict
		}
		post.LikesCount = len(post.Likes)
		return setJSON(txn, postKey(post.ID), post)
	})
}

// GetPost retrieves a post with its comments, replies and likes
func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, postKey(id), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// mutatePost loads a post, applies fn and writes it back in one transaction
func (s *Store) mutatePost(ctx context.Context, id string, fn func(post *models.Post) error) (*models.Post, error) {
	var post models.Post
	err := s.update(ctx, func(txn *badger.Txn) error {
		post = models.Post{}
		if err := getJSON(txn, postKey(id), &post); err != nil {
			return err
		}
		if err := fn(&post); err != nil {
			return err
		}
		post.LikesCount = len(post.Likes)
		return setJSON(txn, postKey(id), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePost applies patch and marks the post edited
func (s *Store) UpdatePost(ctx context.Context, id string, patch storage.PostPatch, guard storage.PostGuard) (*models.Post, error) {
	return s.mutatePost(ctx, id, func(post *models.Post) error {
		if guard != nil {
			if err := guard(post); err != nil {
				return err
			}
		}
		if patch.Title != nil {
			post.Title = *patch.Title
		}
		if patch.Body != nil {
			post.Body = *patch.Body
		}
		post.Edited = true
		post.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// DeletePost removes a post with everything embedded in it
func (s *Store) DeletePost(ctx context.Context, id string, guard storage.PostGuard) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var post models.Post
		if err := getJSON(txn, postKey(id), &post); err != nil {
			return err
		}
		if guard != nil {
			if err := guard(&post); err != nil {
				return err
			}
		}
		return txn.Delete([]byte(postKey(id)))
	})
}

// ListPosts scans all posts, filters and sorts them in memory
func (s *Store) ListPosts(ctx context.Context, q storage.PostQuery) ([]*models.Post, error) {
	excluded := make(map[string]struct{}, len(q.ExcludeAuthors))
	for _, id := range q.ExcludeAuthors {
		excluded[id] = struct{}{}
	}

	var posts []*models.Post
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		posts, err = scan(txn, prefixPost, func(p *models.Post) bool {
			if q.AuthorID != "" && p.AuthorID != q.AuthorID {
				return false
			}
			if _, ok := excluded[p.AuthorID]; ok {
				return false
			}
			return q.After(p.CreatedAt, p.ID)
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	sortPosts(posts, q.Order)
	if q.Limit > 0 && len(posts) > q.Limit {
		posts = posts[:q.Limit]
	}
	return posts, nil
}

func sortPosts(posts []*models.Post, order storage.Order) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if order == storage.OrderTrending && a.LikesCount != b.LikesCount {
			return a.LikesCount > b.LikesCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// ToggleLike flips userID's membership in the liker set
func (s *Store) ToggleLike(ctx context.Context, postID, userID string) (*models.Post, bool, error) {
	var liked bool
	post, err := s.mutatePost(ctx, postID, func(post *models.Post) error {
		if post.LikedBy(userID) {
			kept := make([]string, 0, len(post.Likes))
			for _, id := range post.Likes {
				if id != userID {
					kept = append(kept, id)
				}
			}
			post.Likes = kept
			liked = false
		} else {
			post.Likes = append(post.Likes, userID)
			liked = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return post, liked, nil
}

// AppendComment adds comment at the tail of the post's comment sequence
func (s *Store) AppendComment(ctx context.Context, postID string, comment *models.Comment) (*models.Post, error) {
	return s.mutatePost(ctx, postID, func(post *models.Post) error {
		comment.PostID = postID
		post.Comments = append(post.Comments, *comment)
		return nil
	})
}

// AppendReply adds reply at the tail of the comment's reply sequence
func (s *Store) AppendReply(ctx context.Context, postID, commentID string, reply *models.Reply) (*models.Comment, error) {
	var out models.Comment
	_, err := s.mutatePost(ctx, postID, func(post *models.Post) error {
		comment := post.FindComment(commentID)
		if comment == nil {
			return storage.ErrNotFound
		}
		reply.CommentID = commentID
		comment.Replies = append(comment.Replies, *reply)
		out = *comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteComment removes a comment and its replies
func (s *Store) DeleteComment(ctx context.Context, postID, commentID string, guard storage.CommentGuard) error {
	_, err := s.mutatePost(ctx, postID, func(post *models.Post) error {
		comment := post.FindComment(commentID)
		if comment == nil {
			return storage.ErrNotFound
		}
		if guard != nil {
			if err := guard(post, comment); err != nil {
				return err
			}
		}
		kept := make([]models.Comment, 0, len(post.Comments))
		for _, c := range post.Comments {
			if c.ID != commentID {
				kept = append(kept, c)
			}
		}
		post.Comments = kept
		return nil
	})
	return err
}

// CountLikesGiven counts posts liked by userID
func (s *Store) CountLikesGiven(ctx context.Context, userID string) (int, error) {
	var liked []*models.Post
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		liked, err = scan(txn, prefixPost, func(p *models.Post) bool {
			return p.LikedBy(userID)
		})
		return err
	})
	return len(liked), err
}
