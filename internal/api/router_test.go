package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuslink/commons/internal/auth"
	"github.com/campuslink/commons/internal/service"
	"github.com/campuslink/commons/internal/storage/docstore"
	"github.com/campuslink/commons/pkg/config"
	"github.com/campuslink/commons/pkg/logging"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logging.Logger = zap.NewNop()
	os.Exit(m.Run())
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

type failingCheck struct{}

func (failingCheck) Health(context.Context) error { return errors.New("down") }

func newTestServer(t *testing.T, checks map[string]HealthChecker) *gin.Engine {
	t.Helper()
	store, err := docstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	issuer := auth.NewIssuer(auth.NewMemoryTokenStore(), time.Hour)
	feed := config.FeedConfig{PageSize: 50, MaxPageSize: 100, TrendingLimit: 20, TrendingWindow: 100}

	if checks == nil {
		checks = map[string]HealthChecker{"storage": store}
	}
	svc := Services{
		Accounts:      service.NewAccountService(store, issuer, config.AuthConfig{BcryptCost: 4, SessionTTL: time.Hour}),
		Users:         service.NewUserService(store, store),
		Posts:         service.NewPostService(store, service.NewNotifier(store, store), nil, feed),
		Notifications: service.NewNotificationService(store),
	}
	return NewEngine(NewRouter(svc, checks), "commons-test")
}

func do(t *testing.T, engine *gin.Engine, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

type session struct {
	Token string
	ID    string
}

func register(t *testing.T, engine *gin.Engine, name, email string) session {
	t.Helper()
	status, env := do(t, engine, http.MethodPost, "/auth/register", "", gin.H{
		"name": name, "email": email, "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	require.True(t, env.OK)

	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(t, env, &out)
	require.NotEmpty(t, out.Token)
	return session{Token: out.Token, ID: out.User.ID}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind     service.Kind
		expected int
	}{
		{service.KindValidation, http.StatusBadRequest},
		{service.KindUnauthenticated, http.StatusUnauthorized},
		{service.KindForbidden, http.StatusForbidden},
		{service.KindNotFound, http.StatusNotFound},
		{service.KindConflict, http.StatusConflict},
		{service.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusFor(tt.kind))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "post not found", publicMessage(service.NotFound("post not found")))
	assert.Equal(t, internalMessage, publicMessage(errors.New("pq: connection refused")))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("abc"))
	assert.Empty(t, bearerToken(""))
}

func TestHealth(t *testing.T) {
	engine := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storage":"ok"`)

	engine = newTestServer(t, map[string]HealthChecker{"redis": failingCheck{}})
	req = httptest.NewRequest(http.MethodGet, "/.well-known/healthcheck.json", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"unavailable"`)
}

func TestEnvelopeErrors(t *testing.T) {
	engine := newTestServer(t, nil)
	alice := register(t, engine, "Alice", "alice@campus.edu")

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     interface{}
		expected int
	}{
		{"missing token", http.MethodGet, "/posts/feed", "", nil, http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/posts/feed", "nope", nil, http.StatusUnauthorized},
		{"missing post fields", http.MethodPost, "/posts", alice.Token, gin.H{"title": "x"}, http.StatusBadRequest},
		{"blank title", http.MethodPost, "/posts", alice.Token, gin.H{"title": "  ", "body": "b"}, http.StatusBadRequest},
		{"unknown post", http.MethodGet, "/posts/missing", alice.Token, nil, http.StatusNotFound},
		{"bad feed limit", http.MethodGet, "/posts/feed?limit=abc", alice.Token, nil, http.StatusBadRequest},
		{"bad feed cursor", http.MethodGet, "/posts/feed?before=yesterday", alice.Token, nil, http.StatusBadRequest},
		{"cursor id without time", http.MethodGet, "/posts/feed?beforeId=p1", alice.Token, nil, http.StatusBadRequest},
		{"duplicate email", http.MethodPost, "/auth/register", "", gin.H{"name": "A", "email": "Alice@campus.edu", "password": "x"}, http.StatusConflict},
		{"register missing fields", http.MethodPost, "/auth/register", "", gin.H{"email": "b@campus.edu"}, http.StatusBadRequest},
		{"bad credentials", http.MethodPost, "/auth/login", "", gin.H{"email": "alice@campus.edu", "password": "wrong"}, http.StatusUnauthorized},
		{"self block", http.MethodPost, "/users/" + alice.ID + "/block", alice.Token, nil, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/nowhere", "", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, engine, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.expected, status)
			assert.False(t, env.OK)
			assert.NotEmpty(t, env.Error)
			assert.Empty(t, env.Data)
		})
	}
}

func TestInteractionFlow(t *testing.T) {
	engine := newTestServer(t, nil)
	u1 := register(t, engine, "Una", "una@campus.edu")
	u2 := register(t, engine, "Dos", "dos@campus.edu")
	u3 := register(t, engine, "Tres", "tres@campus.edu")

	status, env := do(t, engine, http.MethodPost, "/posts", u1.Token, gin.H{"title": "Midterms", "body": "Good luck everyone"})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var post service.PostView
	decode(t, env, &post)
	assert.Equal(t, u1.ID, post.AuthorID)
	assert.False(t, post.Edited)
	assert.Empty(t, post.Likes)
	assert.Empty(t, post.Comments)

	likePath := "/posts/" + post.ID + "/like"
	status, env = do(t, engine, http.MethodPost, likePath, u2.Token, nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	var like service.LikeResult
	decode(t, env, &like)
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.LikesCount)

	_, env = do(t, engine, http.MethodPost, likePath, u2.Token, nil)
	decode(t, env, &like)
	assert.False(t, like.Liked)
	assert.Equal(t, 0, like.LikesCount)

	status, env = do(t, engine, http.MethodPost, "/posts/"+post.ID+"/comment", u3.Token, gin.H{"text": "Thanks!"})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var comment service.CommentResult
	decode(t, env, &comment)
	require.Equal(t, 1, comment.CommentsCount)
	commentID := comment.Comments[0].ID

	status, env = do(t, engine, http.MethodPost, "/posts/"+post.ID+"/comment/"+commentID+"/reply", u1.Token, gin.H{"text": "You too"})
	require.Equal(t, http.StatusCreated, status, env.Error)

	var count struct {
		Count int `json:"count"`
	}
	_, env = do(t, engine, http.MethodGet, "/notifications/unread-count", u1.Token, nil)
	decode(t, env, &count)
	assert.Equal(t, 2, count.Count, "one like and one comment")

	_, env = do(t, engine, http.MethodGet, "/notifications/unread-count", u3.Token, nil)
	decode(t, env, &count)
	assert.Equal(t, 1, count.Count, "one reply")

	status, env = do(t, engine, http.MethodPost, "/notifications/read-all", u1.Token, nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	_, env = do(t, engine, http.MethodGet, "/notifications/unread-count", u1.Token, nil)
	decode(t, env, &count)
	assert.Zero(t, count.Count)

	// Only the author may edit
	status, _ = do(t, engine, http.MethodPut, "/posts/"+post.ID, u2.Token, gin.H{"title": "Mine now"})
	assert.Equal(t, http.StatusForbidden, status)
	status, env = do(t, engine, http.MethodPut, "/posts/"+post.ID, u1.Token, gin.H{"title": "Finals"})
	require.Equal(t, http.StatusOK, status, env.Error)
	decode(t, env, &post)
	assert.True(t, post.Edited)
	assert.Equal(t, "Finals", post.Title)

	// Blocking hides the author from the feed
	status, env = do(t, engine, http.MethodPost, "/users/"+u1.ID+"/block", u2.Token, nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	var block service.BlockResult
	decode(t, env, &block)
	assert.True(t, block.Blocked)

	var feed []service.PostView
	_, env = do(t, engine, http.MethodGet, "/posts/feed", u2.Token, nil)
	decode(t, env, &feed)
	assert.Empty(t, feed)

	_, env = do(t, engine, http.MethodGet, "/posts/feed?limit=10", u3.Token, nil)
	decode(t, env, &feed)
	assert.Len(t, feed, 1)

	// Comment deletion by a stranger is refused, by the post author allowed
	commentPath := "/posts/" + post.ID + "/comment/" + commentID
	status, _ = do(t, engine, http.MethodDelete, commentPath, u2.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, env = do(t, engine, http.MethodDelete, commentPath, u1.Token, nil)
	require.Equal(t, http.StatusOK, status, env.Error)

	status, _ = do(t, engine, http.MethodDelete, "/posts/"+post.ID, u1.Token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = do(t, engine, http.MethodGet, "/posts/"+post.ID, u1.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLogoutAndAccountDeletion(t *testing.T) {
	engine := newTestServer(t, nil)
	alice := register(t, engine, "Alice", "alice@campus.edu")

	status, _ := do(t, engine, http.MethodPost, "/auth/logout", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, engine, http.MethodGet, "/users/me", alice.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := do(t, engine, http.MethodPost, "/auth/login", "", gin.H{"email": "alice@campus.edu", "password": "hunter22"})
	require.Equal(t, http.StatusOK, status, env.Error)
	var login service.AuthResult
	decode(t, env, &login)

	status, env = do(t, engine, http.MethodPut, "/users/me/profile", login.Token, gin.H{"major": "Physics", "interests": "chess, running"})
	require.Equal(t, http.StatusOK, status, env.Error)
	var profile service.Profile
	decode(t, env, &profile)
	assert.Equal(t, []string{"chess", "running"}, profile.Interests)

	status, _ = do(t, engine, http.MethodDelete, "/users/me", login.Token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, engine, http.MethodGet, "/users/me", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = do(t, engine, http.MethodPost, "/auth/login", "", gin.H{"email": "alice@campus.edu", "password": "hunter22"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestParseInterests(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
		isNil    bool
		wantErr  bool
	}{
		{"absent", ``, nil, true, false},
		{"null", `null`, nil, true, false},
		{"array", `["go","chess"]`, []string{"go", "chess"}, false, false},
		{"csv", `"go, chess"`, []string{"go", "chess"}, false, false},
		{"number", `42`, nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseInterests(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.isNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, *got)
		})
	}
}
