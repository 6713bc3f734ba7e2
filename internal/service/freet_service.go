package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/persona-graph/internal/apperr"
	"github.com/d60-Lab/persona-graph/internal/model"
	"github.com/d60-Lab/persona-graph/internal/repository"
)

// FreetService 发帖，作者取自 actor 的活跃 persona
type FreetService struct {
	freets   repository.FreetRepository
	personas PersonaRegistry
}

func NewFreetService(freets repository.FreetRepository, personas PersonaRegistry) *FreetService {
	return &FreetService{freets: freets, personas: personas}
}

// Publish 以活跃 persona 的身份发布
func (s *FreetService) Publish(ctx context.Context, actor ActorContext, content string) (*model.Freet, error) {
	if !actor.HasActivePersona() {
		return nil, apperr.ErrNoActivePersona
	}
	content = strings.TrimSpace(content)
	if err := validateContent(content); err != nil {
		return nil, err
	}
	author, err := s.personas.GetByID(ctx, actor.ActivePersonaID)
	if errors.Is(err, apperr.ErrPersonaNotFound) {
		return nil, apperr.ErrStaleActivePersona
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	f := &model.Freet{ID: uuid.New().String(), AuthorID: author.ID, Content: content, CreatedAt: now, UpdatedAt: now}
	if err := s.freets.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// ListByAuthor 按作者 handle 查询，新帖在前
func (s *FreetService) ListByAuthor(ctx context.Context, handle string, page, pageSize int) ([]*model.Freet, error) {
	author, err := s.personas.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	offset, limit := pageWindow(page, pageSize)
	return s.freets.ListByAuthor(ctx, author.ID, offset, limit)
}

// Delete 仅作者 persona 的所属账号可删除
func (s *FreetService) Delete(ctx context.Context, actor ActorContext, id string) error {
	f, err := s.freets.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrFreetNotFound
	}
	if err != nil {
		return err
	}
	author, err := s.personas.GetByID(ctx, f.AuthorID)
	if errors.Is(err, apperr.ErrPersonaNotFound) {
		// 作者已删除的帖子视为无效
		return apperr.ErrFreetNotFound
	}
	if err != nil {
		return err
	}
	if author.Owner != actor.AccountUsername {
		return apperr.WithMessage(apperr.ErrNotOwner, "freet is not authored by this account")
	}
	return s.freets.Delete(ctx, id)
}
