package auth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/assetverse/assetverse/internal/accounts"
	"github.com/assetverse/assetverse/internal/platform/gateway"
	"github.com/assetverse/assetverse/internal/session"
	"github.com/assetverse/assetverse/internal/shared"
	"github.com/assetverse/assetverse/jobs"
)

type memAccounts struct {
	byID    map[int64]accounts.Account
	byEmail map[string]int64
	nextID  int64
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: map[int64]accounts.Account{}, byEmail: map[string]int64{}, nextID: 1}
}

func (m *memAccounts) Create(_ context.Context, a accounts.Account) (int64, error) {
	if _, taken := m.byEmail[a.Email]; taken {
		return 0, shared.ErrEmailTaken
	}
	a.ID = m.nextID
	a.IsActive = true
	m.nextID++
	m.byID[a.ID] = a
	m.byEmail[a.Email] = a.ID
	return a.ID, nil
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (*accounts.Account, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	a := m.byID[id]
	return &a, nil
}

func (m *memAccounts) FindByID(_ context.Context, id int64) (*accounts.Account, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func (m *memAccounts) RoleByEmail(_ context.Context, email string) (string, error) {
	a, err := m.FindByEmail(context.Background(), email)
	if err != nil {
		return "", err
	}
	return string(a.Role), nil
}

func (m *memAccounts) UpdateProfile(_ context.Context, id int64, displayName, photoURL string) error {
	a, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.DisplayName = displayName
	a.PhotoURL = photoURL
	m.byID[id] = a
	return nil
}

func (m *memAccounts) UpdatePassword(_ context.Context, id int64, hash string) error {
	a, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.PasswordHash = hash
	m.byID[id] = a
	return nil
}

func (m *memAccounts) UpdatePackage(context.Context, int64, int64) error { return nil }

func (m *memAccounts) Delete(_ context.Context, id int64) error {
	if a, ok := m.byID[id]; ok {
		delete(m.byEmail, a.Email)
		delete(m.byID, id)
	}
	return nil
}

type stubUploader struct {
	url     string
	err     error
	uploads int
}

func (u *stubUploader) Upload(context.Context, string, io.Reader) (string, error) {
	u.uploads++
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

type stubQueue struct {
	sent []jobs.SendEmailPayload
}

func (q *stubQueue) EnqueueSendEmail(_ context.Context, payload jobs.SendEmailPayload) error {
	q.sent = append(q.sent, payload)
	return nil
}

type authFixture struct {
	svc      *Service
	accounts *memAccounts
	uploader *stubUploader
	queue    *stubQueue
	sessions *session.Manager
	redis    *redis.Client
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	accountRepo := newMemAccounts()
	uploader := &stubUploader{url: "https://img.example.com/p.png"}
	queue := &stubQueue{}
	sessions := session.NewManager(client, "test-secret", time.Hour)
	logger := slog.New(slog.DiscardHandler)

	svc := NewService(accountRepo, accounts.NewService(accountRepo), sessions,
		uploader, client, queue, logger, "https://app.example.com")
	return &authFixture{
		svc: svc, accounts: accountRepo, uploader: uploader,
		queue: queue, sessions: sessions, redis: client,
	}
}

func validRegistration() Registration {
	return Registration{
		Email:       "hr@example.com",
		Password:    "Sup3r!pass",
		DisplayName: "dana hall",
		Role:        "hr",
		CompanyName: "Initech",
	}
}

func TestRegisterIssuesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	token, sess, err := f.svc.Register(ctx, validRegistration(),
		strings.NewReader("png-bytes"), "me.png")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "Dana Hall", sess.DisplayName)
	require.Equal(t, "https://img.example.com/p.png", sess.PhotoURL)

	verified, err := f.sessions.Verify(ctx, token)
	require.NoError(t, err)
	require.Equal(t, sess.AccountID, verified.AccountID)
}

func TestRegisterCompensatesFailedUpload(t *testing.T) {
	f := newAuthFixture(t)
	f.uploader.err = gateway.ErrUnreachable
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, validRegistration(),
		strings.NewReader("png-bytes"), "me.png")
	require.ErrorIs(t, err, gateway.ErrUnreachable)

	// The half-created account must be gone again so the email can retry.
	_, err = f.accounts.FindByEmail(ctx, "hr@example.com")
	require.ErrorIs(t, err, shared.ErrNotFound)

	f.uploader.err = nil
	_, _, err = f.svc.Register(ctx, validRegistration(),
		strings.NewReader("png-bytes"), "me.png")
	require.NoError(t, err)
}

func TestRegisterDuplicateEmailSkipsUpload(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, validRegistration(), nil, "")
	require.NoError(t, err)

	_, _, err = f.svc.Register(ctx, validRegistration(),
		strings.NewReader("png-bytes"), "me.png")
	require.ErrorIs(t, err, shared.ErrEmailTaken)
	require.Zero(t, f.uploader.uploads, "no upload may run for a rejected signup")
}

func TestRegisterRejectsWeakPasswords(t *testing.T) {
	f := newAuthFixture(t)
	for _, password := range []string{"short", "alllowercase!", "NoSpecial1"} {
		reg := validRegistration()
		reg.Password = password
		_, _, err := f.svc.Register(context.Background(), reg, nil, "")
		require.ErrorIs(t, err, ErrWeakPassword, "password %q", password)
	}
}

func TestLoginVerifiesCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, validRegistration(), nil, "")
	require.NoError(t, err)

	token, sess, err := f.svc.Login(ctx, "hr@example.com", "Sup3r!pass")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "hr@example.com", sess.Email)

	_, _, err = f.svc.Login(ctx, "hr@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = f.svc.Login(ctx, "nobody@example.com", "Sup3r!pass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, validRegistration(), nil, "")
	require.NoError(t, err)
	token, sess, err := f.svc.Login(ctx, "hr@example.com", "Sup3r!pass")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, sess.ID))
	_, err = f.sessions.Verify(ctx, token)
	require.ErrorIs(t, err, shared.ErrSessionRevoked)
}

func TestUpdateProfileKeepsPhotoWithoutNewUpload(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, sess, err := f.svc.Register(ctx, validRegistration(),
		strings.NewReader("png-bytes"), "me.png")
	require.NoError(t, err)
	require.Equal(t, 1, f.uploader.uploads)

	account, err := f.svc.UpdateProfile(ctx, sess.AccountID, sess.ID, "dana h. hall", nil, "")
	require.NoError(t, err)
	require.Equal(t, "Dana H. Hall", account.DisplayName)
	require.Equal(t, "https://img.example.com/p.png", account.PhotoURL)
	require.Equal(t, 1, f.uploader.uploads, "no upload may run without a new photo")

	f.uploader.url = "https://img.example.com/new.png"
	account, err = f.svc.UpdateProfile(ctx, sess.AccountID, sess.ID, "dana hall",
		strings.NewReader("png-bytes"), "new.png")
	require.NoError(t, err)
	require.Equal(t, "https://img.example.com/new.png", account.PhotoURL)
}

func TestUpdateProfileRefreshesLiveSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	token, sess, err := f.svc.Register(ctx, validRegistration(),
		strings.NewReader("png-bytes"), "me.png")
	require.NoError(t, err)

	f.uploader.url = "https://img.example.com/new.png"
	_, err = f.svc.UpdateProfile(ctx, sess.AccountID, sess.ID, "dana lee",
		strings.NewReader("png-bytes"), "new.png")
	require.NoError(t, err)

	// The same token must now carry the new identity, not the one it was
	// issued with.
	verified, err := f.sessions.Verify(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "Dana Lee", verified.DisplayName)
	require.Equal(t, "https://img.example.com/new.png", verified.PhotoURL)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, validRegistration(), nil, "")
	require.NoError(t, err)

	// Unknown emails succeed silently and send nothing.
	require.NoError(t, f.svc.ForgotPassword(ctx, "nobody@example.com"))
	require.Empty(t, f.queue.sent)

	require.NoError(t, f.svc.ForgotPassword(ctx, "hr@example.com"))
	require.Len(t, f.queue.sent, 1)

	mail := f.queue.sent[0]
	idx := strings.Index(mail.Body, "token=")
	require.Positive(t, idx)
	token := strings.TrimSpace(mail.Body[idx+len("token="):])

	require.NoError(t, f.svc.ResetPassword(ctx, token, "N3w!password"))
	_, _, err = f.svc.Login(ctx, "hr@example.com", "N3w!password")
	require.NoError(t, err)

	// The token is single use.
	require.ErrorIs(t, f.svc.ResetPassword(ctx, token, "An0ther!pw"), shared.ErrTokenInvalid)
}
