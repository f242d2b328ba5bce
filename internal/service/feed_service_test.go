package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-microblog/internal/domain"
	"go-gin-microblog/pkg/utils"
)

// postAt 直接落库，便于控制 CreatedAt 保证排序可断言
func (f *fixture) postAt(t *testing.T, userID, content string, at time.Time) *domain.Micropost {
	t.Helper()
	p := &domain.Micropost{
		ID:        utils.NewID(),
		UserID:    userID,
		Content:   content,
		CreatedAt: at,
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func TestFeedIncludesSelfAndFollowed(t *testing.T) {
	f := newFixture(t)
	a := f.confirmedUser(t, "Alice", "alice@example.com")
	b := f.confirmedUser(t, "Bob", "bob@example.com")
	c := f.confirmedUser(t, "Carol", "carol@example.com")

	require.NoError(t, f.rels.Follow(t.Context(), a.ID, b.ID))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	p1 := f.postAt(t, a.ID, "own post", base)
	p2 := f.postAt(t, b.ID, "followed post", base.Add(time.Minute))
	p3 := f.postAt(t, c.ID, "stranger post", base.Add(2*time.Minute))

	posts, total, err := f.feed.Feed(t.Context(), a.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, posts, 2)
	// 新的在前
	assert.Equal(t, p2.ID, posts[0].ID)
	assert.Equal(t, p1.ID, posts[1].ID)
	for _, p := range posts {
		assert.NotEqual(t, p3.ID, p.ID, "unrelated user's post must not leak into the feed")
	}
}

func TestFeedNewestFirstWithPaging(t *testing.T) {
	f := newFixture(t)
	a := f.confirmedUser(t, "Alice", "alice@example.com")
	b := f.confirmedUser(t, "Bob", "bob@example.com")
	require.NoError(t, f.rels.Follow(t.Context(), a.ID, b.ID))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		who := a.ID
		if i%2 == 1 {
			who = b.ID
		}
		p := f.postAt(t, who, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, p.ID)
	}

	page1, total, err := f.feed.Feed(t.Context(), a.ID, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page1, 2)
	assert.Equal(t, ids[4], page1[0].ID)
	assert.Equal(t, ids[3], page1[1].ID)

	page3, _, err := f.feed.Feed(t.Context(), a.ID, 4, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, ids[0], page3[0].ID)
}

func TestFeedAfterUnfollow(t *testing.T) {
	f := newFixture(t)
	a := f.confirmedUser(t, "Alice", "alice@example.com")
	b := f.confirmedUser(t, "Bob", "bob@example.com")
	require.NoError(t, f.rels.Follow(t.Context(), a.ID, b.ID))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f.postAt(t, b.ID, "visible while following", base)

	posts, _, err := f.feed.Feed(t.Context(), a.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	require.NoError(t, f.rels.Unfollow(t.Context(), a.ID, b.ID))
	posts, total, err := f.feed.Feed(t.Context(), a.ID, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, posts)
}

func TestUserPosts(t *testing.T) {
	f := newFixture(t)
	a := f.confirmedUser(t, "Alice", "alice@example.com")
	b := f.confirmedUser(t, "Bob", "bob@example.com")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	p1 := f.postAt(t, a.ID, "first", base)
	p2 := f.postAt(t, a.ID, "second", base.Add(time.Minute))
	f.postAt(t, b.ID, "other author", base.Add(2*time.Minute))

	posts, total, err := f.feed.UserPosts(t.Context(), a.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, posts, 2)
	assert.Equal(t, p2.ID, posts[0].ID)
	assert.Equal(t, p1.ID, posts[1].ID)

	_, _, err = f.feed.UserPosts(t.Context(), "no-such-id", 0, 10)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestMicropostValidation(t *testing.T) {
	long := make([]byte, 141)
	for i := range long {
		long[i] = 'x'
	}
	cases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"ok", "hello world", false},
		{"max length", string(long[:140]), false},
		{"max length multibyte", strings.Repeat("微", 140), false},
		{"blank", "   ", true},
		{"too long", string(long), true},
		{"too long multibyte", strings.Repeat("微", 141), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &domain.Micropost{Content: tc.content}
			errs := p.Validate()
			if tc.wantErr {
				assert.True(t, errs.HasField("content"))
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}
