package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/d60-Lab/persona-graph/internal/apperr"
	"github.com/d60-Lab/persona-graph/internal/repository"
	"github.com/d60-Lab/persona-graph/pkg/logger"
)

// Coordinator 父实体删除时的级联清理。
//
// 顺序：先删关注边（两个方向）与该 persona 的 freet，再删 persona 记录。
// 清理失败时不删除 persona，保留“persona 在、边在”的可重试状态；
// 中途崩溃留下的悬挂边由读取方按无效边处理。所有步骤都是按条件删除，重试幂等。
type Coordinator struct {
	personas PersonaRegistry
	graph    RelationshipService
	freets   repository.FreetRepository
}

func NewCoordinator(personas PersonaRegistry, graph RelationshipService, freets repository.FreetRepository) *Coordinator {
	return &Coordinator{personas: personas, graph: graph, freets: freets}
}

// DeletePersona 删除 actor 名下的 persona；不能删除会话当前的活跃 persona
func (c *Coordinator) DeletePersona(ctx context.Context, actor ActorContext, id string) error {
	if actor.HasActivePersona() && id == actor.ActivePersonaID {
		return apperr.ErrDeleteActivePersona
	}

	p, err := c.personas.GetByID(ctx, id)
	switch {
	case errors.Is(err, apperr.ErrPersonaNotFound):
		// persona 已不存在（可能是上一次级联中途失败），只补做边清理
		// 记录已无主，清理只会删掉引用该 id 的悬空边与 freet，不需要所有权检查
		if err := c.cleanup(ctx, id); err != nil {
			return fmt.Errorf("delete persona %s: %w", id, err)
		}
		return nil
	case err != nil:
		return err
	case p.Owner != actor.AccountUsername:
		return apperr.ErrNotOwner
	}

	if err := c.cleanup(ctx, id); err != nil {
		return fmt.Errorf("delete persona %s: %w", id, err)
	}
	if err := c.personas.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("persona deleted", zap.String("persona", id), zap.String("owner", p.Owner))
	return nil
}

// DeleteAccount 删除账号名下全部 persona 及其边；不受活跃 persona 限制
func (c *Coordinator) DeleteAccount(ctx context.Context, username string) error {
	personas, err := c.personas.ListByOwner(ctx, username)
	if err != nil {
		return fmt.Errorf("delete account %s: %w", username, err)
	}

	var errs error
	for _, p := range personas {
		errs = multierr.Append(errs, c.cleanup(ctx, p.ID))
	}
	if errs != nil {
		return fmt.Errorf("delete account %s: %w", username, errs)
	}

	n, err := c.personas.DeleteByOwner(ctx, username)
	if err != nil {
		return fmt.Errorf("delete account %s: %w", username, err)
	}
	logger.Info("account personas deleted", zap.String("account", username), zap.Int64("personas", n))
	return nil
}

// cleanup 删除 persona 的依赖记录，所有子步骤都会执行，错误合并返回
func (c *Coordinator) cleanup(ctx context.Context, personaID string) error {
	err := multierr.Combine(
		c.graph.DeleteAllInitiatedBy(ctx, personaID),
		c.graph.DeleteAllTargeting(ctx, personaID),
	)
	if _, ferr := c.freets.DeleteByAuthor(ctx, personaID); ferr != nil {
		err = multierr.Append(err, fmt.Errorf("delete freets of %s: %w", personaID, ferr))
	}
	return err
}
