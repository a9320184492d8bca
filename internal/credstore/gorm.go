package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type record struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Payload   string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (record) TableName() string { return "credentials" }

// GormStore keeps the credential as a JSON payload in a key/value table.
type GormStore struct {
	DB  *gorm.DB
	Key string
}

func NewGormStore(ctx context.Context, db *gorm.DB, key string) (*GormStore, error) {
	if key == "" {
		key = DefaultKey
	}
	if err := db.WithContext(ctx).AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate credentials: %w", err)
	}
	return &GormStore{DB: db, Key: key}, nil
}

func (s *GormStore) Load(ctx context.Context) (*Credential, error) {
	var rec record
	if err := s.DB.WithContext(ctx).Where("key = ?", s.Key).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	var cred Credential
	if err := json.Unmarshal([]byte(rec.Payload), &cred); err != nil {
		return nil, fmt.Errorf("parse credential: %w", err)
	}
	return &cred, nil
}

func (s *GormStore) Save(ctx context.Context, cred *Credential) error {
	payload, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	rec := record{Key: s.Key, Payload: string(payload), UpdatedAt: time.Now().UTC()}
	err = s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *GormStore) Clear(ctx context.Context) error {
	if err := s.DB.WithContext(ctx).Where("key = ?", s.Key).Delete(&record{}).Error; err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
