// Package session owns the server-side representation of a signed-in
// identity: a bearer token handed to the client plus a Redis record that
// acts as the revocation authority. Everything else in the application only
// reads the session from request context.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/assetverse/assetverse/internal/shared"
)

// Session holds the client-held identity attributes for one signed-in user.
type Session struct {
	ID          string    `json:"id"`
	AccountID   int64     `json:"account_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Manager issues, verifies and revokes bearer sessions backed by Redis.
type Manager struct {
	client *redis.Client
	secret []byte
	ttl    time.Duration
}

// NewManager constructs a Manager.
func NewManager(client *redis.Client, secret string, ttl time.Duration) *Manager {
	return &Manager{client: client, secret: []byte(secret), ttl: ttl}
}

type claims struct {
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// Issue creates a session for the account and returns the signed bearer
// token alongside the stored session record.
func (m *Manager) Issue(ctx context.Context, accountID int64, email, displayName, photoURL string) (string, *Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Email:       email,
		DisplayName: displayName,
		PhotoURL:    photoURL,
		IssuedAt:    now,
		ExpiresAt:   now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email:       email,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("session: sign token: %w", err)
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return "", nil, fmt.Errorf("session: marshal: %w", err)
	}
	if err := m.client.Set(ctx, redisKey(sess.ID), payload, m.ttl).Err(); err != nil {
		return "", nil, fmt.Errorf("session: store: %w", err)
	}

	return signed, sess, nil
}

// Verify parses and validates a bearer token and loads its backing session.
// A valid token whose record was deleted is treated as revoked.
func (m *Manager) Verify(ctx context.Context, token string) (*Session, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, shared.ErrTokenExpired
		}
		return nil, shared.ErrTokenInvalid
	}
	if parsed.ID == "" {
		return nil, shared.ErrTokenInvalid
	}

	payload, err := m.client.Get(ctx, redisKey(parsed.ID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrSessionRevoked
		}
		return nil, fmt.Errorf("session: load: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	return &sess, nil
}

// Revoke destroys a session record so its token stops verifying.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	if err := m.client.Del(ctx, redisKey(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: revoke: %w", err)
	}
	return nil
}

// UpdateProfile rewrites the stored display fields after a profile change so
// subsequent reads observe the refreshed identity, keeping the remaining TTL.
func (m *Manager) UpdateProfile(ctx context.Context, id, displayName, photoURL string) error {
	payload, err := m.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.ErrSessionRevoked
		}
		return fmt.Errorf("session: load: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return fmt.Errorf("session: unmarshal: %w", err)
	}
	sess.DisplayName = displayName
	sess.PhotoURL = photoURL

	updated, err := json.Marshal(&sess)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return shared.ErrTokenExpired
	}
	if err := m.client.Set(ctx, redisKey(id), updated, ttl).Err(); err != nil {
		return fmt.Errorf("session: store: %w", err)
	}
	return nil
}

// TTL exposes the configured session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

func redisKey(id string) string { return "session:" + id }
