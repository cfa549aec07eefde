// Package auth implements registration, login and credential recovery. The
// registration pipeline is ordered: the account row exists before the photo
// upload runs, and a failed upload tears the account down again so no
// half-registered identity survives.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/assetverse/assetverse/internal/accounts"
	"github.com/assetverse/assetverse/internal/integrations/imagehost"
	"github.com/assetverse/assetverse/internal/session"
	"github.com/assetverse/assetverse/internal/shared"
	"github.com/assetverse/assetverse/jobs"
)

// ErrWeakPassword rejects credentials below the minimum strength.
var ErrWeakPassword = errors.New("auth: password too weak")

const resetTokenTTL = 30 * time.Minute

// Registration carries the validated signup fields.
type Registration struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
	CompanyName string
	CompanyLogo string
	DateOfBirth *time.Time
}

// Enqueuer queues background work the flows hand off, currently just mail.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) error
}

// Service drives the authentication flows.
type Service struct {
	accounts accounts.Repository
	naming   *accounts.Service
	sessions *session.Manager
	uploader imagehost.Uploader
	redis    *redis.Client
	queue    Enqueuer
	logger   *slog.Logger
	appURL   string
}

// NewService constructs a Service.
func NewService(
	accountRepo accounts.Repository,
	naming *accounts.Service,
	sessions *session.Manager,
	uploader imagehost.Uploader,
	redisClient *redis.Client,
	queue Enqueuer,
	logger *slog.Logger,
	appURL string,
) *Service {
	return &Service{
		accounts: accountRepo,
		naming:   naming,
		sessions: sessions,
		uploader: uploader,
		redis:    redisClient,
		queue:    queue,
		logger:   logger,
		appURL:   appURL,
	}
}

// Register runs the ordered signup pipeline: validate, create the account,
// upload the profile photo, then finalize with a fresh session. When the
// upload fails the created account is deleted again; the error reaches the
// caller untouched so transport failures stay distinguishable.
func (s *Service) Register(ctx context.Context, reg Registration, photo io.Reader, photoName string) (string, *session.Session, error) {
	role, err := accounts.ParseRole(reg.Role)
	if err != nil {
		return "", nil, err
	}
	if err := checkPassword(reg.Password); err != nil {
		return "", nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("auth: hash password: %w", err)
	}

	displayName := s.naming.NormalizeName(reg.DisplayName)
	id, err := s.accounts.Create(ctx, accounts.Account{
		Email:        reg.Email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Role:         role,
		CompanyName:  reg.CompanyName,
		CompanyLogo:  reg.CompanyLogo,
		DateOfBirth:  reg.DateOfBirth,
	})
	if err != nil {
		return "", nil, err
	}

	var photoURL string
	if photo != nil {
		photoURL, err = s.uploader.Upload(ctx, photoName, photo)
		if err != nil {
			s.compensate(ctx, id)
			return "", nil, fmt.Errorf("upload profile photo: %w", err)
		}
		if err := s.accounts.UpdateProfile(ctx, id, displayName, photoURL); err != nil {
			s.compensate(ctx, id)
			return "", nil, fmt.Errorf("finalize profile: %w", err)
		}
	}

	token, sess, err := s.sessions.Issue(ctx, id, reg.Email, displayName, photoURL)
	if err != nil {
		return "", nil, fmt.Errorf("issue session: %w", err)
	}
	return token, sess, nil
}

// compensate removes the account a failed pipeline step left behind.
func (s *Service) compensate(ctx context.Context, id int64) {
	if err := s.accounts.Delete(ctx, id); err != nil {
		s.logger.Error("registration compensation failed",
			slog.Int64("account_id", id), slog.Any("error", err))
	}
}

// UpdateProfile changes the display name and, when a new photo is supplied,
// uploads it first. The stored photo survives when no new one arrives. The
// caller's session record is rewritten too, so reads through the session
// observe the new identity immediately rather than after token expiry.
func (s *Service) UpdateProfile(ctx context.Context, accountID int64, sessionID, displayName string, photo io.Reader, photoName string) (*accounts.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	photoURL := account.PhotoURL
	if photo != nil {
		photoURL, err = s.uploader.Upload(ctx, photoName, photo)
		if err != nil {
			return nil, fmt.Errorf("upload profile photo: %w", err)
		}
	}

	if err := s.naming.UpdateProfile(ctx, accountID, displayName, photoURL); err != nil {
		return nil, err
	}

	updated, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateProfile(ctx, sessionID, updated.DisplayName, updated.PhotoURL); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return updated, nil
}

// Login verifies the credentials and issues a session.
func (s *Service) Login(ctx context.Context, email, password string) (string, *session.Session, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", nil, shared.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !account.IsActive {
		return "", nil, shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	return s.sessions.Issue(ctx, account.ID, account.Email, account.DisplayName, account.PhotoURL)
}

// Logout revokes the session record; the bearer token dies with it.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Revoke(ctx, sessionID)
}

// ForgotPassword issues a reset token and mails the reset link. An unknown
// email succeeds silently so the endpoint leaks no account existence.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}

	token := uuid.NewString()
	if err := s.redis.Set(ctx, resetKey(token), account.ID, resetTokenTTL).Err(); err != nil {
		return fmt.Errorf("auth: store reset token: %w", err)
	}

	resetURL := s.appURL + "/reset-password?token=" + token
	err = s.queue.EnqueueSendEmail(ctx, jobs.SendEmailPayload{
		To:      account.Email,
		Subject: "Reset your AssetVerse password",
		Body: "Hi " + account.DisplayName + ",\n\n" +
			"Use the link below to choose a new password. It expires in 30 minutes.\n\n" +
			resetURL + "\n",
	})
	if err != nil {
		return fmt.Errorf("auth: queue reset email: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token and installs the new credential.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	accountID, err := s.redis.Get(ctx, resetKey(token)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.ErrTokenInvalid
		}
		return fmt.Errorf("auth: load reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, accountID, string(hash)); err != nil {
		return err
	}
	// Single use: a consumed token never resets twice.
	_ = s.redis.Del(ctx, resetKey(token)).Err()
	return nil
}

func resetKey(token string) string { return "pwreset:" + token }

// checkPassword enforces the minimum credential strength: six characters
// with at least one upper-case letter and one non-alphanumeric character.
func checkPassword(password string) error {
	if len(password) < 6 {
		return ErrWeakPassword
	}
	var hasUpper, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			hasSpecial = true
		}
	}
	if !hasUpper || !hasSpecial {
		return ErrWeakPassword
	}
	return nil
}
