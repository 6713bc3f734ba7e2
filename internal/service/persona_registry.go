package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/persona-graph/internal/apperr"
	"github.com/d60-Lab/persona-graph/internal/model"
	"github.com/d60-Lab/persona-graph/internal/repository"
)

// PersonaUpdate 为 nil 的字段保持不变
type PersonaUpdate struct {
	Name   *string
	Handle *string
}

// PersonaRegistry Persona 的唯一写入方：创建、handle 唯一性、更新与查询
type PersonaRegistry interface {
	Create(ctx context.Context, owner, handle, name string) (*model.Persona, error)
	GetByID(ctx context.Context, id string) (*model.Persona, error)
	GetByHandle(ctx context.Context, handle string) (*model.Persona, error)
	ListByOwner(ctx context.Context, owner string) ([]*model.Persona, error)
	// Resolve 批量取 persona，缺失的 id 不出现在结果中
	Resolve(ctx context.Context, ids []string) (map[string]*model.Persona, error)
	Update(ctx context.Context, id string, upd PersonaUpdate) (*model.Persona, error)
	// UpdateOwned 仅允许 persona 的所属账号修改
	UpdateOwned(ctx context.Context, actor ActorContext, id string, upd PersonaUpdate) (*model.Persona, error)
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, owner string) (int64, error)
}

type personaRegistry struct {
	repo  repository.PersonaRepository
	names NamePolicy
}

func NewPersonaRegistry(repo repository.PersonaRepository, names NamePolicy) PersonaRegistry {
	return &personaRegistry{repo: repo, names: names}
}

func (s *personaRegistry) Create(ctx context.Context, owner, handle, name string) (*model.Persona, error) {
	if owner == "" {
		return nil, apperr.WithMessage(apperr.ErrInvalidAccount, "persona owner is required")
	}
	handle = NormalizeHandle(handle)
	if err := validateHandle(handle); err != nil {
		return nil, err
	}
	if err := s.names.Validate(name); err != nil {
		return nil, err
	}

	// 乐观检查：给出友好错误；最终以唯一索引为准
	if _, err := s.repo.GetByHandle(ctx, handle); err == nil {
		return nil, apperr.ErrHandleTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	p := &model.Persona{
		ID:        uuid.New().String(),
		Owner:     owner,
		Handle:    handle,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.ErrHandleTaken, err)
		}
		return nil, err
	}
	return p, nil
}

func (s *personaRegistry) GetByID(ctx context.Context, id string) (*model.Persona, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrPersonaNotFound
	}
	return p, err
}

func (s *personaRegistry) GetByHandle(ctx context.Context, handle string) (*model.Persona, error) {
	p, err := s.repo.GetByHandle(ctx, NormalizeHandle(handle))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.WithMessage(apperr.ErrPersonaNotFound, "no persona with handle %q", NormalizeHandle(handle))
	}
	return p, err
}

func (s *personaRegistry) ListByOwner(ctx context.Context, owner string) ([]*model.Persona, error) {
	return s.repo.ListByOwner(ctx, owner)
}

func (s *personaRegistry) Resolve(ctx context.Context, ids []string) (map[string]*model.Persona, error) {
	list, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	res := make(map[string]*model.Persona, len(list))
	for _, p := range list {
		res[p.ID] = p
	}
	return res, nil
}

func (s *personaRegistry) Update(ctx context.Context, id string, upd PersonaUpdate) (*model.Persona, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, p, upd)
}

func (s *personaRegistry) UpdateOwned(ctx context.Context, actor ActorContext, id string, upd PersonaUpdate) (*model.Persona, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Owner != actor.AccountUsername {
		return nil, apperr.ErrNotOwner
	}
	return s.apply(ctx, p, upd)
}

func (s *personaRegistry) apply(ctx context.Context, p *model.Persona, upd PersonaUpdate) (*model.Persona, error) {
	next := *p
	if upd.Name != nil {
		if err := s.names.Validate(*upd.Name); err != nil {
			return nil, err
		}
		next.Name = *upd.Name
	}
	if upd.Handle != nil {
		handle := NormalizeHandle(*upd.Handle)
		if err := validateHandle(handle); err != nil {
			return nil, err
		}
		if handle != p.Handle {
			// 唯一性检查排除自身
			other, err := s.repo.GetByHandle(ctx, handle)
			switch {
			case err == nil && other.ID != p.ID:
				return nil, apperr.ErrHandleTaken
			case err != nil && !errors.Is(err, repository.ErrNotFound):
				return nil, err
			}
		}
		next.Handle = handle
	}

	if err := s.repo.Update(ctx, &next); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperr.Wrap(apperr.ErrHandleTaken, err)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.ErrPersonaNotFound
		}
		return nil, err
	}
	return &next, nil
}

func (s *personaRegistry) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete persona %s: %w", id, err)
	}
	return nil
}

func (s *personaRegistry) DeleteByOwner(ctx context.Context, owner string) (int64, error) {
	n, err := s.repo.DeleteByOwner(ctx, owner)
	if err != nil {
		return n, fmt.Errorf("delete personas of %s: %w", owner, err)
	}
	return n, nil
}
