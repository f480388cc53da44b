package service

import (
	"context"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/campuslink/commons/internal/models"
	"github.com/campuslink/commons/internal/storage"
)

// Discovery weights
const (
	scoreSameMajor      = 3
	scoreSameDepartment = 2
	scoreSameYear       = 1
	scoreSharedInterest = 2
	scoreSearchMatch    = 5
)

// ProfileUpdate carries the profile fields to change. Nil fields are kept.
type ProfileUpdate struct {
	Major      *string
	Department *string
	Year       *string
	Bio        *string
	Interests  *[]string
}

// NotificationSettingsUpdate carries the preferences to change
type NotificationSettingsUpdate struct {
	Likes    *bool `json:"likes"`
	Comments *bool `json:"comments"`
	Replies  *bool `json:"replies"`
	System   *bool `json:"system"`
}

// Settings is the account settings page
type Settings struct {
	ID                   string                      `json:"id"`
	Name                 string                      `json:"name"`
	Email                string                      `json:"email"`
	NotificationSettings models.NotificationSettings `json:"notificationSettings"`
}

// BlockResult is the outcome of a block toggle
type BlockResult struct {
	Blocked       bool   `json:"blocked"`
	BlockedUserID string `json:"blockedUserId"`
}

// Suggestion is a discovered member with a similarity score
type Suggestion struct {
	PublicProfile
	Score int `json:"score"`
}

// UserService manages profiles, settings, blocking and discovery
type UserService struct {
	users storage.UserStore
	posts storage.PostStore
}

// NewUserService creates a user service
func NewUserService(users storage.UserStore, posts storage.PostStore) *UserService {
	return &UserService{users: users, posts: posts}
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, fromStorage(err, "user")
	}
	return user, nil
}

// Me returns actor's profile with activity stats
func (s *UserService) Me(ctx context.Context, actor Actor) (*Profile, error) {
	user, err := s.load(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	posts, err := s.posts.ListPosts(ctx, storage.PostQuery{AuthorID: actor.ID})
	if err != nil {
		return nil, fromStorage(err, "posts")
	}
	likesGiven, err := s.posts.CountLikesGiven(ctx, actor.ID)
	if err != nil {
		return nil, fromStorage(err, "likes")
	}

	profile := newProfile(user)
	profile.Stats = &Stats{
		PostsCount:            len(posts),
		LikesGivenCount:       likesGiven,
		LikesReceivedCount:    lo.SumBy(posts, func(p *models.Post) int { return len(p.Likes) }),
		CommentsReceivedCount: lo.SumBy(posts, func(p *models.Post) int { return len(p.Comments) }),
	}
	return profile, nil
}

// UpdateProfile changes the academic profile fields
func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, update ProfileUpdate) (*Profile, error) {
	user, err := s.load(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = CleanText(*src)
		}
	}
	apply(&user.Major, update.Major)
	apply(&user.Department, update.Department)
	apply(&user.Year, update.Year)
	apply(&user.Bio, update.Bio)
	if update.Interests != nil {
		user.Interests = cleanInterests(*update.Interests)
	}

	return s.save(ctx, user)
}

// ParseInterests splits a comma-separated interest list
func ParseInterests(raw string) []string {
	return cleanInterests(strings.Split(raw, ","))
}

func cleanInterests(in []string) []string {
	cleaned := lo.Map(in, func(s string, _ int) string { return CleanText(s) })
	return lo.Uniq(lo.Compact(cleaned))
}

// Settings returns actor's account settings
func (s *UserService) Settings(ctx context.Context, actor Actor) (*Settings, error) {
	user, err := s.load(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return &Settings{
		ID:                   user.ID,
		Name:                 user.Name,
		Email:                user.Email,
		NotificationSettings: user.NotificationSettings,
	}, nil
}

// UpdateAccount changes the display name and notification preferences
func (s *UserService) UpdateAccount(ctx context.Context, actor Actor, name *string, prefs *NotificationSettingsUpdate) (*Settings, error) {
	user, err := s.load(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	if name != nil {
		cleaned := CleanText(*name)
		if cleaned == "" {
			return nil, ValidationError("name cannot be empty")
		}
		user.Name = cleaned
	}
	if prefs != nil {
		ns := &user.NotificationSettings
		ns.Likes = lo.FromPtrOr(prefs.Likes, ns.Likes)
		ns.Comments = lo.FromPtrOr(prefs.Comments, ns.Comments)
		ns.Replies = lo.FromPtrOr(prefs.Replies, ns.Replies)
		ns.System = lo.FromPtrOr(prefs.System, ns.System)
	}

	if _, err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return s.Settings(ctx, actor)
}

func (s *UserService) save(ctx context.Context, user *models.User) (*Profile, error) {
	user.UpdatedAt = nowUTC()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fromStorage(err, "user")
	}
	return newProfile(user), nil
}

// PublicProfile returns what members may see about id
func (s *UserService) PublicProfile(ctx context.Context, id string) (*PublicProfile, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted {
		return nil, NotFound("user not found")
	}
	profile := newPublicProfile(user)
	return &profile, nil
}

// Blocked lists the users actor has blocked
func (s *UserService) Blocked(ctx context.Context, actor Actor) ([]PublicProfile, error) {
	users, err := s.users.ListBlocked(ctx, actor.ID)
	if err != nil {
		return nil, fromStorage(err, "user")
	}
	return lo.Map(users, func(u *models.User, _ int) PublicProfile {
		return newPublicProfile(u)
	}), nil
}

// ToggleBlock blocks targetID when not blocked and unblocks otherwise
func (s *UserService) ToggleBlock(ctx context.Context, actor Actor, targetID string) (*BlockResult, error) {
	if targetID == actor.ID {
		return nil, ValidationError("you cannot block yourself")
	}
	blocked, err := s.users.ToggleBlock(ctx, actor.ID, targetID)
	if err != nil {
		return nil, fromStorage(err, "user")
	}
	return &BlockResult{Blocked: blocked, BlockedUserID: targetID}, nil
}

// Discover ranks other members by similarity to actor. With a query only
// matching members are returned, otherwise only members with a positive score.
func (s *UserService) Discover(ctx context.Context, actor Actor, query string) ([]Suggestion, error) {
	me, err := s.load(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	all, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fromStorage(err, "users")
	}

	q := strings.ToLower(strings.TrimSpace(query))
	vis := NewVisibility(me.BlockedUsers)

	candidates := lo.Filter(all, func(u *models.User, _ int) bool {
		return u.ID != me.ID && !u.IsDeleted && !vis.Hides(u.ID)
	})

	suggestions := make([]Suggestion, 0, len(candidates))
	for _, u := range candidates {
		score := similarity(me, u)
		matches := q == ""
		if q != "" && matchesQuery(u, q) {
			matches = true
			score += scoreSearchMatch
		}
		if !matches || (q == "" && score <= 0) {
			continue
		}
		suggestions = append(suggestions, Suggestion{PublicProfile: newPublicProfile(u), Score: score})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	return suggestions, nil
}

func similarity(me, other *models.User) int {
	score := 0
	if me.Major != "" && me.Major == other.Major {
		score += scoreSameMajor
	}
	if me.Department != "" && me.Department == other.Department {
		score += scoreSameDepartment
	}
	if me.Year != "" && me.Year == other.Year {
		score += scoreSameYear
	}
	score += len(lo.Intersect(lo.Uniq(me.Interests), lo.Uniq(other.Interests))) * scoreSharedInterest
	return score
}

func matchesQuery(u *models.User, q string) bool {
	fields := []string{u.Name, u.Email, u.Major, u.Department, u.Year, u.Bio, strings.Join(u.Interests, " ")}
	return lo.SomeBy(fields, func(f string) bool {
		return strings.Contains(strings.ToLower(f), q)
	})
}

// DeleteAccount soft-deletes actor. Login and token resolution fail afterwards.
func (s *UserService) DeleteAccount(ctx context.Context, actor Actor) error {
	user, err := s.load(ctx, actor.ID)
	if err != nil {
		return err
	}
	user.IsDeleted = true
	_, err = s.save(ctx, user)
	return err
}
