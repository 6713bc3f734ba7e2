// Package session stores the active-persona binding of each authenticated
// session. A binding is a single persona id per session id.
package session

import (
	"context"
	"errors"
)

// ErrNoBinding 会话尚未绑定活跃身份
var ErrNoBinding = errors.New("session has no active persona")

// Session 已认证的会话（由 HTTP 层从令牌中解析）
type Session struct {
	ID              string
	AccountUsername string
}

// Store 会话 -> 活跃 persona id
type Store interface {
	Get(ctx context.Context, sessionID string) (string, error)
	Set(ctx context.Context, sessionID, personaID string) error
	Delete(ctx context.Context, sessionID string) error
}
