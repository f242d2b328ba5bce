package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-gin-microblog/internal/domain"
	"go-gin-microblog/internal/mailer"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)

	u, err := f.users.Register(t.Context(), "Alice", "Alice@Example.COM", "secret1", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", u.Email, "email is stored lower-cased")
	assert.NotEmpty(t, u.ID)
	assert.NotEmpty(t, u.RememberDigest)
	require.NotNil(t, u.ConfirmationHash, "fresh account is unconfirmed")
	assert.False(t, u.Admin)

	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")))

	jobs := f.drainQueue(t)
	require.Len(t, jobs, 1)
	assert.Equal(t, mailer.KindRegistrationConfirmation, jobs[0].Kind)
	assert.Equal(t, u.ID, jobs[0].UserID)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name     string
		in       [4]string // name, email, password, confirmation
		badField string
	}{
		{"blank name", [4]string{"", "a@b.com", "secret1", "secret1"}, "name"},
		{"long name", [4]string{string(make([]byte, 65)), "a@b.com", "secret1", "secret1"}, "name"},
		{"blank email", [4]string{"Al", "", "secret1", "secret1"}, "email"},
		{"bad email", [4]string{"Al", "not-an-email", "secret1", "secret1"}, "email"},
		{"short password", [4]string{"Al", "a@b.com", "12345", "12345"}, "password"},
		{"mismatch", [4]string{"Al", "a@b.com", "secret1", "secret2"}, "password_confirmation"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.users.Register(t.Context(), tc.in[0], tc.in[1], tc.in[2], tc.in[3])
			require.Error(t, err)
			errs, ok := domain.AsValidation(err)
			require.True(t, ok, "expected validation errors, got %v", err)
			assert.True(t, errs.HasField(tc.badField), "expected error on %s: %v", tc.badField, errs)
		})
	}

	assert.Empty(t, f.drainQueue(t), "nothing enqueued for failed registrations")
}

func TestRegisterDuplicateEmailAnyCasing(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Register(t.Context(), "Alice", "alice@example.com", "secret1", "secret1")
	require.NoError(t, err)

	_, err = f.users.Register(t.Context(), "Mallory", "ALICE@EXAMPLE.com", "secret1", "secret1")
	require.Error(t, err)
	errs, ok := domain.AsValidation(err)
	require.True(t, ok)
	assert.True(t, errs.HasField("email"))

	var n int64
	require.NoError(t, f.db.Model(&domain.User{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)

	u, err := f.users.Register(t.Context(), "Alice", "alice@example.com", "secret1", "secret1")
	require.NoError(t, err)

	// 未确认：密码正确也拒绝
	_, err = f.users.Authenticate(t.Context(), "alice@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidEmailOrPassword)

	_, err = f.users.ConfirmRegistration(t.Context(), u.ID, *u.ConfirmationHash)
	require.NoError(t, err)

	got, err := f.users.Authenticate(t.Context(), "ALICE@example.COM", "secret1")
	require.NoError(t, err, "email lookup is case-insensitive")
	assert.Equal(t, u.ID, got.ID)

	_, err = f.users.Authenticate(t.Context(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidEmailOrPassword)

	_, err = f.users.Authenticate(t.Context(), "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidEmailOrPassword, "unknown email yields the same generic failure")
}

func TestConfirmRegistration(t *testing.T) {
	f := newFixture(t)

	u, err := f.users.Register(t.Context(), "Alice", "alice@example.com", "secret1", "secret1")
	require.NoError(t, err)

	// 错 hash 和不存在的 id 必须是同一个错误
	_, errWrong := f.users.ConfirmRegistration(t.Context(), u.ID, "deadbeef")
	_, errNoID := f.users.ConfirmRegistration(t.Context(), "no-such-id", "deadbeef")
	assert.ErrorIs(t, errWrong, domain.ErrWrongHash)
	assert.ErrorIs(t, errNoID, domain.ErrWrongHash)
	assert.Equal(t, errWrong.Error(), errNoID.Error())

	got, err := f.users.ConfirmRegistration(t.Context(), u.ID, *u.ConfirmationHash)
	require.NoError(t, err)
	assert.Nil(t, got.ConfirmationHash, "hash cleared after use")
	assert.True(t, got.Confirmed())

	// 已用过的链接失效
	_, err = f.users.ConfirmRegistration(t.Context(), u.ID, *u.ConfirmationHash)
	assert.ErrorIs(t, err, domain.ErrWrongHash)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	u := f.confirmedUser(t, "Alice", "alice@example.com")
	f.drainQueue(t)

	require.NoError(t, f.users.RequestPasswordReset(t.Context(), "ALICE@example.com"))

	jobs := f.drainQueue(t)
	require.Len(t, jobs, 1)
	assert.Equal(t, mailer.KindPasswordResetConfirmation, jobs[0].Kind)

	stored, err := f.users.Get(t.Context(), u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordResetHash)
	hash := *stored.PasswordResetHash

	// 错 hash 不放行
	_, err = f.users.ResetPassword(t.Context(), u.ID, "deadbeef", "newsecret", "newsecret")
	assert.ErrorIs(t, err, domain.ErrWrongHash)

	// 新密码也要过校验
	_, err = f.users.ResetPassword(t.Context(), u.ID, hash, "short", "short")
	_, isValidation := domain.AsValidation(err)
	assert.True(t, isValidation)

	got, err := f.users.ResetPassword(t.Context(), u.ID, hash, "newsecret", "newsecret")
	require.NoError(t, err)
	assert.Nil(t, got.PasswordResetHash, "reset hash is single-use")

	_, err = f.users.Authenticate(t.Context(), "alice@example.com", "newsecret")
	assert.NoError(t, err)
	_, err = f.users.Authenticate(t.Context(), "alice@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidEmailOrPassword)
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	f := newFixture(t)
	err := f.users.RequestPasswordReset(t.Context(), "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Empty(t, f.drainQueue(t))
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	u := f.confirmedUser(t, "Alice", "alice@example.com")
	f.confirmedUser(t, "Bob", "bob@example.com")

	got, err := f.users.Update(t.Context(), u.ID, UpdateInput{Name: "Alicia", Email: "New@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.Name)
	assert.Equal(t, "new@example.com", got.Email)

	// 改到别人的邮箱：校验错误
	_, err = f.users.Update(t.Context(), u.ID, UpdateInput{Email: "BOB@example.com"})
	errs, ok := domain.AsValidation(err)
	require.True(t, ok)
	assert.True(t, errs.HasField("email"))

	// 改密码要带确认
	_, err = f.users.Update(t.Context(), u.ID, UpdateInput{Password: "newsecret", PasswordConfirmation: "other"})
	_, ok = domain.AsValidation(err)
	assert.True(t, ok)

	_, err = f.users.Update(t.Context(), u.ID, UpdateInput{Password: "newsecret", PasswordConfirmation: "newsecret"})
	require.NoError(t, err)
	_, err = f.users.Authenticate(t.Context(), "new@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	admin := f.confirmedUser(t, "Root", "root@example.com")
	victim := f.confirmedUser(t, "Bob", "bob@example.com")
	other := f.confirmedUser(t, "Carol", "carol@example.com")

	require.NoError(t, f.db.Create(&domain.Micropost{ID: "p1", UserID: victim.ID, Content: "hello"}).Error)
	require.NoError(t, f.rels.Follow(t.Context(), victim.ID, other.ID))
	require.NoError(t, f.rels.Follow(t.Context(), other.ID, victim.ID))

	require.NoError(t, f.users.Delete(t.Context(), admin.ID, victim.ID))

	var posts, edges int64
	require.NoError(t, f.db.Model(&domain.Micropost{}).Where("user_id = ?", victim.ID).Count(&posts).Error)
	require.NoError(t, f.db.Model(&domain.Relationship{}).
		Where("follower_id = ? OR followed_id = ?", victim.ID, victim.ID).Count(&edges).Error)
	assert.Zero(t, posts)
	assert.Zero(t, edges, "no dangling edges after cascade")

	_, err := f.users.Get(t.Context(), victim.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDeleteOwnAccountRefused(t *testing.T) {
	f := newFixture(t)
	admin := f.confirmedUser(t, "Root", "root@example.com")

	err := f.users.Delete(t.Context(), admin.ID, admin.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	var n int64
	require.NoError(t, f.db.Model(&domain.User{}).Count(&n).Error)
	assert.EqualValues(t, 1, n, "user count unchanged")
}

func TestProfileWithoutCache(t *testing.T) {
	f := newFixture(t)
	u := f.confirmedUser(t, "Alice", "alice@example.com")

	p, err := f.users.Profile(t.Context(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Name, p.Name)

	_, err = f.users.Profile(t.Context(), "no-such-id")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
