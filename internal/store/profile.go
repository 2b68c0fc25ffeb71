package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront-checkout/internal/model"
)

// guestSlot is the single well-known key for the guest profile row.
const guestSlot = "guest"

// GuestProfile is the persisted guest-checkout contact info. It survives
// across sessions until explicitly cleared.
type GuestProfile struct {
	Slot      string `gorm:"primaryKey"`
	Email     string
	FirstName string
	LastName  string
	Phone     string
	UpdatedAt time.Time
}

func OpenProfileDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open profile db: %w", err)
	}
	if err := db.AutoMigrate(&GuestProfile{}); err != nil {
		return nil, fmt.Errorf("migrate profile db: %w", err)
	}
	return db, nil
}

type ProfileStore interface {
	Save(ctx context.Context, info model.CustomerInfo) error
	Load(ctx context.Context) (model.CustomerInfo, bool, error)
	Clear(ctx context.Context) error
}

type profileStoreImpl struct {
	db *gorm.DB
}

func NewProfileStore(db *gorm.DB) ProfileStore {
	return &profileStoreImpl{db: db}
}

func (s *profileStoreImpl) Save(ctx context.Context, info model.CustomerInfo) error {
	profile := &GuestProfile{
		Slot:      guestSlot,
		Email:     info.Email,
		FirstName: info.FirstName,
		LastName:  info.LastName,
		Phone:     info.Phone,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		UpdateAll: true,
	}).Create(profile).Error
}

func (s *profileStoreImpl) Load(ctx context.Context) (model.CustomerInfo, bool, error) {
	var profile GuestProfile
	err := s.db.WithContext(ctx).First(&profile, "slot = ?", guestSlot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.CustomerInfo{}, false, nil
		}
		return model.CustomerInfo{}, false, err
	}
	return model.CustomerInfo{
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Phone:     profile.Phone,
	}, true, nil
}

func (s *profileStoreImpl) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Delete(&GuestProfile{}, "slot = ?", guestSlot).Error
}
