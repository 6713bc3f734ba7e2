package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/persona-graph/internal/model"
)

// FreetRepository 短帖存储，仅按作者 persona 引用
type FreetRepository interface {
	Create(ctx context.Context, f *model.Freet) error
	GetByID(ctx context.Context, id string) (*model.Freet, error)
	ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*model.Freet, error)
	Delete(ctx context.Context, id string) error
	DeleteByAuthor(ctx context.Context, authorID string) (int64, error)
}

type freetRepository struct{ db *gorm.DB }

func NewFreetRepository(db *gorm.DB) FreetRepository { return &freetRepository{db: db} }

func (r *freetRepository) Create(ctx context.Context, f *model.Freet) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *freetRepository) GetByID(ctx context.Context, id string) (*model.Freet, error) {
	var f model.Freet
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *freetRepository) ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*model.Freet, error) {
	offset, limit = normalizePage(offset, limit)
	var res []*model.Freet
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *freetRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Freet{}).Error
}

func (r *freetRepository) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("author_id = ?", authorID).Delete(&model.Freet{})
	return res.RowsAffected, res.Error
}
