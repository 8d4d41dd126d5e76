package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/padel-booking/services/booking-service/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.User{})
}

// Sync upserts the profile carried by a verified token. Empty fields do not
// overwrite stored ones.
func (r *UserRepo) Sync(ctx context.Context, u *domain.User) error {
	cols := []string{"updated_at"}
	if u.Email != "" {
		cols = append(cols, "email")
	}
	if u.Name != "" {
		cols = append(cols, "name")
	}
	if u.Role != "" {
		cols = append(cols, "role")
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(u).Error
	if err != nil {
		return storeErr("sync user", err)
	}
	return nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("get user", err)
	}
	return &u, nil
}
