package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/persona-graph/internal/model"
)

// PersonaRepository Persona 存储；handle 唯一性由 ux_persona_handle 保证
type PersonaRepository interface {
	Create(ctx context.Context, p *model.Persona) error
	GetByID(ctx context.Context, id string) (*model.Persona, error)
	GetByHandle(ctx context.Context, handle string) (*model.Persona, error)
	// ListByIDs 返回存在的记录，缺失的 id 被忽略
	ListByIDs(ctx context.Context, ids []string) ([]*model.Persona, error)
	ListByOwner(ctx context.Context, owner string) ([]*model.Persona, error)
	// Update 只写 name 与 handle，owner 不可变
	Update(ctx context.Context, p *model.Persona) error
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, owner string) (int64, error)
}

type personaRepository struct {
	db *gorm.DB
}

func NewPersonaRepository(db *gorm.DB) PersonaRepository { return &personaRepository{db: db} }

func (r *personaRepository) Create(ctx context.Context, p *model.Persona) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create persona %q: %w", p.Handle, translate(err))
	}
	return nil
}

func (r *personaRepository) GetByID(ctx context.Context, id string) (*model.Persona, error) {
	var p model.Persona
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *personaRepository) GetByHandle(ctx context.Context, handle string) (*model.Persona, error) {
	var p model.Persona
	// 等值查询，区分大小写
	if err := r.db.WithContext(ctx).Where("handle = ?", handle).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *personaRepository) ListByIDs(ctx context.Context, ids []string) ([]*model.Persona, error) {
	if len(ids) == 0 {
		return []*model.Persona{}, nil
	}
	var res []*model.Persona
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&res).Error
	return res, err
}

func (r *personaRepository) ListByOwner(ctx context.Context, owner string) ([]*model.Persona, error) {
	var res []*model.Persona
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at ASC").Order("id ASC").
		Find(&res).Error
	return res, err
}

func (r *personaRepository) Update(ctx context.Context, p *model.Persona) error {
	p.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.Persona{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{"name": p.Name, "handle": p.Handle, "updated_at": p.UpdatedAt})
	if res.Error != nil {
		return fmt.Errorf("update persona %s: %w", p.ID, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *personaRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Persona{}).Error
}

func (r *personaRepository) DeleteByOwner(ctx context.Context, owner string) (int64, error) {
	res := r.db.WithContext(ctx).Where("owner = ?", owner).Delete(&model.Persona{})
	return res.RowsAffected, res.Error
}
