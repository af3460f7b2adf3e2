package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"krostyshop/internal/clock"
	"krostyshop/internal/domain/user"
	"krostyshop/internal/services/svcerr"
	"krostyshop/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type captureMailer struct {
	to, link string
	calls    int
}

func (m *captureMailer) SendPasswordReset(to, link string) error {
	m.to, m.link = to, link
	m.calls++
	return nil
}

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *memory.Store, *captureMailer) {
	t.Helper()
	store := memory.New()
	mail := &captureMailer{}
	svc := NewService(store.Users(), NewTokenIssuer([]byte("test-secret-0123456789")), mail,
		clock.NewFixed(now), Config{BaseURL: "https://shop.test/"})
	svc.cost = bcrypt.MinCost
	return svc, store, mail
}

func TestSignUpAndSignIn(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, "  Ana@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", sess.Email)
	assert.Equal(t, user.RoleCustomer, sess.Role)
	assert.Equal(t, now.Add(24*time.Hour), sess.ExpiresAt)

	actor, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, actor.ID)

	again, err := svc.SignIn(ctx, "ANA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, again.UserID)

	_, err = svc.SignIn(ctx, "ana@example.com", "wrong-pass")
	assert.ErrorIs(t, err, user.ErrInvalidLogin)
	_, err = svc.SignIn(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, user.ErrInvalidLogin)
}

func TestSignUpValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	cases := map[string]struct{ email, password, field string }{
		"bad email":      {"not-an-email", "secret1", "email"},
		"short password": {"a@b.co", "12345", "password"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, tc.email, tc.password)
			var ve *svcerr.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	_, err := svc.SignUp(ctx, "dup@example.com", "secret1")
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, "DUP@example.com", "secret2")
	var ve *svcerr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "email", ve.Field)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, mail := newService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	// unknown email is silent
	require.NoError(t, svc.RequestPasswordReset(ctx, "ghost@example.com", ""))
	assert.Equal(t, 0, mail.calls)

	require.NoError(t, svc.RequestPasswordReset(ctx, "ana@example.com", "https://evil.test/steal"))
	require.Equal(t, 1, mail.calls)
	assert.Equal(t, "ana@example.com", mail.to)

	link, err := url.Parse(mail.link)
	require.NoError(t, err)
	assert.Equal(t, "shop.test", link.Host)
	assert.Equal(t, "/reset-password", link.Path)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	// a reset token is not a session
	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, svc.ResetPassword(ctx, token, "newsecret"))
	_, err = svc.SignIn(ctx, "ana@example.com", "newsecret")
	assert.NoError(t, err)

	// the link is spent once the password changes
	var spent *svcerr.ValidationError
	require.True(t, errors.As(svc.ResetPassword(ctx, token, "another1"), &spent))
	assert.Equal(t, "token", spent.Field)
	_, err = svc.SignIn(ctx, "ana@example.com", "another1")
	assert.ErrorIs(t, err, user.ErrInvalidLogin)

	var ve *svcerr.ValidationError
	assert.True(t, errors.As(svc.ResetPassword(ctx, "garbage", "newsecret"), &ve))
}

func TestResetLinkHonoursSameSiteRedirect(t *testing.T) {
	svc, _, _ := newService(t)
	link := svc.resetLink("https://shop.test/account/update-password?lang=es", "tok")
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/account/update-password", u.Path)
	assert.Equal(t, "es", u.Query().Get("lang"))
	assert.Equal(t, "tok", u.Query().Get("token"))
}

func TestExpiredTokenRejected(t *testing.T) {
	svc, store, _ := newService(t)
	sess, err := svc.SignUp(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)

	later := NewService(store.Users(), svc.tokens, svc.mail, clock.NewFixed(now.Add(25*time.Hour)), Config{})
	_, err = later.Authenticate(context.Background(), sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPromoteAdmin(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, "boss@example.com", "secret1")
	require.NoError(t, err)

	u, err := svc.PromoteAdmin(ctx, "boss@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	// new sessions carry the admin role
	sess, err = svc.SignIn(ctx, "boss@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, sess.Role)

	_, err = svc.PromoteAdmin(ctx, "missing@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestPasswordChangeEndsSessions(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	actor, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, actor, "secret2"))
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	fresh, err := svc.SignIn(ctx, "ana@example.com", "secret2")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, fresh.Token)
	assert.NoError(t, err)
}

func TestChangePasswordRequiresActor(t *testing.T) {
	svc, _, _ := newService(t)
	err := svc.ChangePassword(context.Background(), user.Actor{}, "whatever")
	assert.ErrorIs(t, err, svcerr.ErrUnauthorized)
}
