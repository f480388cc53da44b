package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/commons/internal/models"
)

func TestPostService_CreateAndGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.member(t, "u1")

	created, err := env.posts.Create(ctx, u1, "  Midterms ", "Good luck **everyone**")
	require.NoError(t, err)
	assert.Equal(t, "Midterms", created.Title)
	assert.Equal(t, "Name u1", created.AuthorName)

	got, err := env.posts.Get(ctx, u1, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Edited)
	assert.Empty(t, got.Comments)
	assert.Empty(t, got.Likes)
	assert.Zero(t, got.LikesCount)
	assert.Contains(t, got.BodyHTML, "<strong>everyone</strong>")

	_, err = env.posts.Get(ctx, u1, "missing")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestPostService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.member(t, "u1")

	tests := []struct {
		name  string
		title string
		body  string
	}{
		{"empty title", "", "body"},
		{"blank title", "   ", "body"},
		{"empty body", "title", ""},
		{"blank body", "title", " \n "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.posts.Create(context.Background(), u1, tt.title, tt.body)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestPostService_SnapshotsAuthor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.member(t, "u1")

	post, err := env.posts.Create(ctx, u1, "t", "b")
	require.NoError(t, err)

	_, err = env.users.UpdateAccount(ctx, u1, strPtr("Renamed"), nil)
	require.NoError(t, err)

	got, err := env.posts.Get(ctx, u1, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Name u1", got.AuthorName)
}

func TestPostService_Edit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.member(t, "u1")
	u2 := env.member(t, "u2")

	post, err := env.posts.Create(ctx, u1, "title", "body")
	require.NoError(t, err)

	t.Run("non-author forbidden", func(t *testing.T) {
		_, err := env.posts.Edit(ctx, u2, post.ID, strPtr("hijack"), nil)
		assert.Equal(t, KindForbidden, KindOf(err))

		got, err := env.posts.Get(ctx, u1, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "title", got.Title)
		assert.False(t, got.Edited)
	})

	t.Run("nothing to apply", func(t *testing.T) {
		_, err := env.posts.Edit(ctx, u1, post.ID, nil, nil)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("blank field", func(t *testing.T) {
		_, err := env.posts.Edit(ctx, u1, post.ID, nil, strPtr("  "))
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := env.posts.Edit(ctx, u1, "missing", strPtr("x"), nil)
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("partial update marks edited", func(t *testing.T) {
		edited, err := env.posts.Edit(ctx, u1, post.ID, strPtr("new title"), nil)
		require.NoError(t, err)
		assert.Equal(t, "new title", edited.Title)
		assert.Equal(t, "body", edited.Body)
		assert.True(t, edited.Edited)
	})

	t.Run("unchanged value still marks edited", func(t *testing.T) {
		edited, err := env.posts.Edit(ctx, u1, post.ID, nil, strPtr("body"))
		require.NoError(t, err)
		assert.True(t, edited.Edited)
	})
}

func TestPostService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.member(t, "u1")
	u2 := env.member(t, "u2")

	post, err := env.posts.Create(ctx, u1, "title", "body")
	require.NoError(t, err)

	assert.Equal(t, KindForbidden, KindOf(env.posts.Delete(ctx, u2, post.ID)))
	require.NoError(t, env.posts.Delete(ctx, u1, post.ID))

	_, err = env.posts.Get(ctx, u1, post.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, KindNotFound, KindOf(env.posts.Delete(ctx, u1, post.ID)))
}

func TestPostService_DeleteComment(t *testing.T) {
	tests := []struct {
		name    string
		deleter string
		allowed bool
	}{
		{"comment author", "commenter", true},
		{"post author", "author", true},
		{"third party", "stranger", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			actors := map[string]Actor{
				"author":    env.member(t, "author"),
				"commenter": env.member(t, "commenter"),
				"stranger":  env.member(t, "stranger"),
			}

			post, err := env.posts.Create(ctx, actors["author"], "title", "body")
			require.NoError(t, err)
			res, err := env.posts.AddComment(ctx, actors["commenter"], post.ID, "hello")
			require.NoError(t, err)
			commentID := res.Comments[0].ID
			_, err = env.posts.ReplyToComment(ctx, actors["author"], post.ID, commentID, "hi back")
			require.NoError(t, err)

			err = env.posts.DeleteComment(ctx, actors[tt.deleter], post.ID, commentID)
			got, getErr := env.posts.Get(ctx, actors["author"], post.ID)
			require.NoError(t, getErr)

			if !tt.allowed {
				assert.Equal(t, KindForbidden, KindOf(err))
				require.Len(t, got.Comments, 1)
				assert.Len(t, got.Comments[0].Replies, 1)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, got.Comments)
		})
	}

	t.Run("missing post and comment", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		u1 := env.member(t, "u1")
		post, err := env.posts.Create(ctx, u1, "title", "body")
		require.NoError(t, err)

		assert.Equal(t, KindNotFound, KindOf(env.posts.DeleteComment(ctx, u1, "missing", "c")))
		assert.Equal(t, KindNotFound, KindOf(env.posts.DeleteComment(ctx, u1, post.ID, "missing")))
	})
}

func TestPostService_GetHidesBlockedThread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.member(t, "u1")
	u2 := env.member(t, "u2")
	u3 := env.member(t, "u3")

	post, err := env.posts.Create(ctx, u2, "title", "body")
	require.NoError(t, err)
	res, err := env.posts.AddComment(ctx, u3, post.ID, "from u3")
	require.NoError(t, err)
	_, err = env.posts.AddComment(ctx, u2, post.ID, "from u2")
	require.NoError(t, err)
	_, err = env.posts.ReplyToComment(ctx, u2, post.ID, res.Comments[0].ID, "reply from u2")
	require.NoError(t, err)

	_, err = env.users.ToggleBlock(ctx, u1, u2.ID)
	require.NoError(t, err)
	u1 = env.reload(t, u1)

	got, err := env.posts.Get(ctx, u1, post.ID)
	require.NoError(t, err)
	assert.True(t, got.AuthorBlocked)
	assert.Equal(t, 2, got.CommentsCount)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "from u3", got.Comments[0].Text)
	assert.Empty(t, got.Comments[0].Replies)
}

func TestPostService_Feeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.member(t, "a")
	b := env.member(t, "b")
	c := env.member(t, "c")

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := base
	env.posts.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	p1, err := env.posts.Create(ctx, a, "first", "body")
	require.NoError(t, err)
	p2, err := env.posts.Create(ctx, c, "second", "body")
	require.NoError(t, err)
	p3, err := env.posts.Create(ctx, b, "third", "body")
	require.NoError(t, err)

	_, err = env.posts.ToggleLike(ctx, c, p1.ID)
	require.NoError(t, err)
	_, err = env.posts.ToggleLike(ctx, c, p3.ID)
	require.NoError(t, err)

	_, err = env.users.ToggleBlock(ctx, a, b.ID)
	require.NoError(t, err)
	a = env.reload(t, a)

	ids := func(views []*PostView) []string {
		out := make([]string, 0, len(views))
		for _, v := range views {
			out = append(out, v.ID)
		}
		return out
	}

	t.Run("feed is newest first without blocked authors", func(t *testing.T) {
		feed, err := env.posts.Feed(ctx, a, FeedParams{})
		require.NoError(t, err)
		assert.Equal(t, []string{p2.ID, p1.ID}, ids(feed))
	})

	t.Run("feed pages with before", func(t *testing.T) {
		feed, err := env.posts.Feed(ctx, c, FeedParams{Limit: 1})
		require.NoError(t, err)
		require.Equal(t, []string{p3.ID}, ids(feed))

		before := feed[0].CreatedAt
		next, err := env.posts.Feed(ctx, c, FeedParams{Limit: 1, Before: &before})
		require.NoError(t, err)
		assert.Equal(t, []string{p2.ID}, ids(next))

		next, err = env.posts.Feed(ctx, c, FeedParams{Limit: 1, Before: &before, BeforeID: feed[0].ID})
		require.NoError(t, err)
		assert.Equal(t, []string{p2.ID}, ids(next))
	})

	t.Run("trending ranks likes then recency", func(t *testing.T) {
		trending, err := env.posts.Trending(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, []string{p3.ID, p1.ID, p2.ID}, ids(trending))
		assert.True(t, trending[0].LikedByMe)
	})

	t.Run("trending hides blocked authors", func(t *testing.T) {
		trending, err := env.posts.Trending(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, []string{p1.ID, p2.ID}, ids(trending))
	})

	t.Run("mine", func(t *testing.T) {
		mine, err := env.posts.Mine(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, []string{p3.ID}, ids(mine))
	})
}

func TestPostService_TrendingRefillsThinnedWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.posts.feed.TrendingLimit = 1
	env.posts.feed.TrendingWindow = 1

	a := env.member(t, "a")
	b := env.member(t, "b")
	pa, err := env.posts.Create(ctx, a, "a", "body")
	require.NoError(t, err)
	pb, err := env.posts.Create(ctx, b, "b", "body")
	require.NoError(t, err)
	_, err = env.posts.ToggleLike(ctx, a, pb.ID)
	require.NoError(t, err)

	_, err = env.users.ToggleBlock(ctx, a, b.ID)
	require.NoError(t, err)
	a = env.reload(t, a)

	trending, err := env.posts.Trending(ctx, a)
	require.NoError(t, err)
	require.Len(t, trending, 1)
	assert.Equal(t, pa.ID, trending[0].ID)
}

func TestPostService_AddCommentValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.member(t, "u1")
	post, err := env.posts.Create(ctx, u1, "title", "body")
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := env.posts.AddComment(ctx, u1, post.ID, text)
		assert.Equal(t, KindValidation, KindOf(err), "text %q", text)
	}

	got, err := env.posts.Get(ctx, u1, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Comments)

	_, err = env.posts.AddComment(ctx, u1, "missing", "hi")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestPostService_KeepsTextAsWritten(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.member(t, "u1")
	u2 := env.member(t, "u2")

	post, err := env.posts.Create(ctx, u1, " if a<b then ", "a<b")
	require.NoError(t, err)
	assert.Equal(t, "if a<b then", post.Title)
	assert.Equal(t, "a<b", post.Body)

	tests := []struct {
		name string
		text string
	}{
		{"comparison", "a<b"},
		{"tag-like word", "<thanks>"},
		{"tag-like name mid sentence", "meet at <Library> at 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.posts.AddComment(ctx, u2, post.ID, tt.text)
			require.NoError(t, err)
			last := res.Comments[len(res.Comments)-1]
			assert.Equal(t, tt.text, last.Text)

			reply, err := env.posts.ReplyToComment(ctx, u1, post.ID, last.ID, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.text, reply.Reply.Text)
		})
	}

	edited, err := env.posts.Edit(ctx, u1, post.ID, strPtr("<thanks>"), nil)
	require.NoError(t, err)
	assert.Equal(t, "<thanks>", edited.Title)
}

func TestPostService_ReplyToMissingComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.member(t, "u1")
	post, err := env.posts.Create(ctx, u1, "title", "body")
	require.NoError(t, err)
	_, err = env.posts.AddComment(ctx, u1, post.ID, "c")
	require.NoError(t, err)

	_, err = env.posts.ReplyToComment(ctx, u1, post.ID, "missing", "hello")
	assert.Equal(t, KindNotFound, KindOf(err))

	got, err := env.posts.Get(ctx, u1, post.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Empty(t, got.Comments[0].Replies)

	_, err = env.posts.ReplyToComment(ctx, u1, post.ID, got.Comments[0].ID, " ")
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestPostService_ToggleLike(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.member(t, "u1")
	u2 := env.member(t, "u2")
	post, err := env.posts.Create(ctx, u1, "title", "body")
	require.NoError(t, err)

	t.Run("involution", func(t *testing.T) {
		first, err := env.posts.ToggleLike(ctx, u2, post.ID)
		require.NoError(t, err)
		assert.True(t, first.Liked)
		assert.Equal(t, 1, first.LikesCount)

		second, err := env.posts.ToggleLike(ctx, u2, post.ID)
		require.NoError(t, err)
		assert.False(t, second.Liked)
		assert.Zero(t, second.LikesCount)
	})

	t.Run("only new likes by others notify", func(t *testing.T) {
		list := env.notificationsOf(t, u1)
		require.Len(t, list, 1)
		assert.Equal(t, models.NotifyTypeLike, list[0].Type)
		assert.Equal(t, u2.ID, list[0].ActorID)
		assert.Equal(t, post.ID, list[0].PostID)
		assert.Nil(t, list[0].CommentID)
	})

	t.Run("self like never notifies", func(t *testing.T) {
		res, err := env.posts.ToggleLike(ctx, u1, post.ID)
		require.NoError(t, err)
		assert.True(t, res.Liked)
		assert.Len(t, env.notificationsOf(t, u1), 1)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := env.posts.ToggleLike(ctx, u2, "missing")
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}

// Midterms walkthrough: like, unlike, comment, author reply.
func TestInteractionScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.member(t, "u1")
	u2 := env.member(t, "u2")
	u3 := env.member(t, "u3")

	post, err := env.posts.Create(ctx, u1, "Midterms", "Good luck everyone")
	require.NoError(t, err)

	like, err := env.posts.ToggleLike(ctx, u2, post.ID)
	require.NoError(t, err)
	assert.Equal(t, &LikeResult{PostID: post.ID, Liked: true, LikesCount: 1}, like)
	require.Len(t, env.notificationsOf(t, u1), 1)

	unlike, err := env.posts.ToggleLike(ctx, u2, post.ID)
	require.NoError(t, err)
	assert.Equal(t, &LikeResult{PostID: post.ID, Liked: false, LikesCount: 0}, unlike)
	require.Len(t, env.notificationsOf(t, u1), 1)

	comment, err := env.posts.AddComment(ctx, u3, post.ID, "Thanks!")
	require.NoError(t, err)
	assert.Equal(t, 1, comment.CommentsCount)
	authorInbox := env.notificationsOf(t, u1)
	require.Len(t, authorInbox, 2)
	assert.Equal(t, models.NotifyTypeComment, authorInbox[0].Type)
	require.NotNil(t, authorInbox[0].CommentID)
	assert.Equal(t, comment.Comments[0].ID, *authorInbox[0].CommentID)

	reply, err := env.posts.ReplyToComment(ctx, u1, post.ID, comment.Comments[0].ID, "You too")
	require.NoError(t, err)
	require.Len(t, reply.Replies, 1)
	assert.Equal(t, "You too", reply.Reply.Text)

	commenterInbox := env.notificationsOf(t, u3)
	require.Len(t, commenterInbox, 1)
	assert.Equal(t, models.NotifyTypeReply, commenterInbox[0].Type)
	assert.Equal(t, comment.Comments[0].ID, *commenterInbox[0].CommentID)
	assert.Len(t, env.notificationsOf(t, u1), 2)
}
