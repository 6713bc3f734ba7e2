package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/d60-Lab/persona-graph/internal/apperr"
	"github.com/d60-Lab/persona-graph/internal/model"
	"github.com/d60-Lab/persona-graph/internal/session"
	"github.com/d60-Lab/persona-graph/pkg/logger"
)

// Binder 维护会话的活跃 persona。
// 其他组件只通过 Binder.Actor 得到的 ActorContext 获取操作者身份。
type Binder struct {
	personas PersonaRegistry
	store    session.Store
}

func NewBinder(personas PersonaRegistry, store session.Store) *Binder {
	return &Binder{personas: personas, store: store}
}

// SignIn 以 handle 切换活跃 persona；handle 不存在或不属于该账号都返回 NotFound
func (b *Binder) SignIn(ctx context.Context, sess session.Session, handle string) (*model.Persona, error) {
	p, err := b.personas.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if p.Owner != sess.AccountUsername {
		return nil, apperr.WithMessage(apperr.ErrPersonaNotFound, "no persona with handle %q under this account", p.Handle)
	}
	if err := b.store.Set(ctx, sess.ID, p.ID); err != nil {
		return nil, err
	}
	logger.Info("persona signed in", zap.String("session", sess.ID), zap.String("persona", p.ID))
	return p, nil
}

// CurrentPersona 重新解析绑定的 persona
func (b *Binder) CurrentPersona(ctx context.Context, sess session.Session) (*model.Persona, error) {
	id, err := b.store.Get(ctx, sess.ID)
	if errors.Is(err, session.ErrNoBinding) {
		return nil, apperr.ErrNoActivePersona
	}
	if err != nil {
		return nil, err
	}
	p, err := b.personas.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrPersonaNotFound) {
		return nil, apperr.ErrStaleActivePersona
	}
	return p, err
}

// Clear 解除绑定，重复调用无副作用
func (b *Binder) Clear(ctx context.Context, sess session.Session) error {
	return b.store.Delete(ctx, sess.ID)
}

// Actor 构造请求的 ActorContext。未绑定时 ActivePersonaID 为空；
// 绑定的 persona 是否仍存在由具体操作自行校验。
func (b *Binder) Actor(ctx context.Context, sess session.Session) (ActorContext, error) {
	actor := ActorContext{AccountUsername: sess.AccountUsername, SessionID: sess.ID}
	id, err := b.store.Get(ctx, sess.ID)
	switch {
	case errors.Is(err, session.ErrNoBinding):
		return actor, nil
	case err != nil:
		return actor, err
	}
	actor.ActivePersonaID = id
	return actor, nil
}
