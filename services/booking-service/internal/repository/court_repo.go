package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/padel-booking/services/booking-service/internal/domain"
)

type CourtRepo struct {
	db *gorm.DB
}

func NewCourtRepo(db *gorm.DB) *CourtRepo {
	return &CourtRepo{db: db}
}

func (r *CourtRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Court{})
}

// Upsert inserts c or overwrites the court with the same id.
func (r *CourtRepo) Upsert(ctx context.Context, c *domain.Court) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "address", "city", "price"}),
	}).Create(c).Error
	if err != nil {
		return storeErr("upsert court", err)
	}
	return nil
}

func (r *CourtRepo) ByID(ctx context.Context, id string) (*domain.Court, error) {
	var c domain.Court
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("get court", err)
	}
	return &c, nil
}

// List returns the catalog, optionally filtered by city (case-insensitive).
func (r *CourtRepo) List(ctx context.Context, city string) ([]domain.Court, error) {
	qb := r.db.WithContext(ctx).Model(&domain.Court{})
	if city = strings.TrimSpace(city); city != "" {
		qb = qb.Where("LOWER(city) = ?", strings.ToLower(city))
	}
	out := []domain.Court{}
	if err := qb.Order("name ASC").Find(&out).Error; err != nil {
		return nil, storeErr("list courts", err)
	}
	return out, nil
}

func (r *CourtRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Court{}).Count(&n).Error; err != nil {
		return 0, storeErr("count courts", err)
	}
	return n, nil
}
