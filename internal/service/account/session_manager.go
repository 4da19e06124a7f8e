package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"storefront/internal/domain"
)

type sessionManager struct {
	repo sessionRepo
	now  func() time.Time
}

func newSessionManager(repo sessionRepo) *sessionManager {
	return &sessionManager{repo: repo, now: time.Now}
}

func (m *sessionManager) Issue(ctx context.Context, userID string, ttl time.Duration) (*domain.Session, error) {
	expiresAt := m.now().Add(ttl)
	for i := 0; i < 5; i++ {
		token, err := randomToken()
		if err != nil {
			return nil, err
		}
		sess := domain.Session{Token: token, UserID: userID, ExpiresAt: expiresAt}
		err = m.repo.Create(ctx, sess)
		if err == nil {
			return &sess, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		return nil, err
	}
	return nil, errors.New("session token collision")
}

func (m *sessionManager) Validate(ctx context.Context, token string) (*domain.Session, bool) {
	if token == "" {
		return nil, false
	}
	sess, err := m.repo.Get(ctx, token)
	if err != nil {
		return nil, false
	}
	if m.now().After(sess.ExpiresAt) {
		_ = m.repo.Delete(ctx, token)
		return nil, false
	}
	return sess, true
}

func (m *sessionManager) Revoke(ctx context.Context, token string) error {
	return m.repo.Delete(ctx, token)
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
