// Package token issues and verifies the bearer tokens that carry an
// authenticated session: the account username and the session id.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid 令牌无效或已过期
var ErrInvalid = errors.New("invalid token")

// Claims Subject 为账号用户名，ID 为会话 id，AccountID 区分同名的先后两次注册
type Claims struct {
	AccountID string `json:"aid"`
	jwt.RegisteredClaims
}

func (c *Claims) Username() string  { return c.Subject }
func (c *Claims) SessionID() string { return c.ID }

// Manager HS256 签发与校验
type Manager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewManager(secret string, expiry time.Duration) *Manager {
	return &Manager{secret: []byte(secret), expiry: expiry, now: time.Now}
}

// Issue 为会话签发令牌
func (m *Manager) Issue(username, accountID, sessionID string) (string, error) {
	now := m.now()
	claims := Claims{AccountID: accountID, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   username,
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse 校验签名与有效期
func (m *Manager) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.Subject == "" || claims.ID == "" || claims.AccountID == "" {
		return nil, fmt.Errorf("%w: missing subject, account or session id", ErrInvalid)
	}
	return claims, nil
}
