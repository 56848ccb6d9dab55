package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/intellifit/gym-core/internal/model"
)

// Каталог ресурсов ведётся снаружи; движку нужен только доступ на чтение.
type ResourceRepository interface {
	// Найти ресурс каталога по ID.
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	// Ресурсы заданного типа.
	ListByKind(ctx context.Context, kind model.ResourceKind) ([]model.Resource, error)
}

type GormResourceRepository struct {
	db *gorm.DB
}

func NewGormResourceRepository(db *gorm.DB) *GormResourceRepository {
	return &GormResourceRepository{db: db}
}

func (r *GormResourceRepository) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	var res model.Resource
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *GormResourceRepository) ListByKind(ctx context.Context, kind model.ResourceKind) ([]model.Resource, error) {
	var resources []model.Resource
	err := r.db.WithContext(ctx).
		Model(&model.Resource{}).
		Where("kind = ?", kind).
		Order("name ASC").
		Find(&resources).Error
	if err != nil {
		return nil, err
	}
	return resources, nil
}
