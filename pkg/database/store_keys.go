package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegisterAPIKey loads the row for k.Key, inserting k when the key has never
// been seen. Keys signed out of band (cmd/keygen) are registered this way.
func (s *GormStore) RegisterAPIKey(ctx context.Context, k *APIKey) error {
	err := s.db.WithContext(ctx).Where(APIKey{Key: k.Key}).FirstOrCreate(k).Error
	if err != nil {
		return fmt.Errorf("failed to register api key %s: %w", k.Name, err)
	}
	return nil
}

func (s *GormStore) CreateAPIKey(ctx context.Context, k *APIKey) error {
	if err := s.db.WithContext(ctx).Create(k).Error; err != nil {
		return fmt.Errorf("failed to create api key %s: %w", k.Name, err)
	}
	return nil
}

func (s *GormStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	var keys []APIKey
	if err := s.db.WithContext(ctx).Order("id").Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

func (s *GormStore) UpdateAPIKeyLimit(ctx context.Context, id string, limit int) error {
	res := s.db.WithContext(ctx).Model(&APIKey{}).Where("id = ?", id).Update("rate_limit", limit)
	if res.Error != nil {
		return fmt.Errorf("failed to update api key %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("api key %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *GormStore) DeleteAPIKey(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&APIKey{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete api key %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("api key %s: %w", id, ErrNotFound)
	}
	return nil
}

// TouchAPIKey stamps the key as used now
func (s *GormStore) TouchAPIKey(ctx context.Context, k *APIKey) error {
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(k).Update("last_used", &now).Error; err != nil {
		return fmt.Errorf("failed to touch api key %d: %w", k.ID, err)
	}
	return nil
}

// RequestsOn returns how many requests the key made on date (YYYY-MM-DD)
func (s *GormStore) RequestsOn(ctx context.Context, keyID uint, date string) (int, error) {
	var usage APIUsage
	err := s.db.WithContext(ctx).Where("key_id = ? AND date = ?", keyID, date).Limit(1).Find(&usage).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load usage of api key %d: %w", keyID, err)
	}
	return usage.RequestCount, nil
}

// RecordUsage adds u to the key's row for u.Date, creating it on first use
func (s *GormStore) RecordUsage(ctx context.Context, u APIUsage) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":      gorm.Expr("request_count + ?", u.RequestCount),
			"total_requirements": gorm.Expr("total_requirements + ?", u.TotalRequirements),
			"total_volunteers":   gorm.Expr("total_volunteers + ?", u.TotalVolunteers),
		}),
	}).Create(&u).Error
	if err != nil {
		return fmt.Errorf("failed to record usage of api key %d: %w", u.KeyID, err)
	}
	return nil
}

// UsageHistory returns the most recent days of usage, newest first
func (s *GormStore) UsageHistory(ctx context.Context, keyID uint, days int) ([]APIUsage, error) {
	var usage []APIUsage
	err := s.db.WithContext(ctx).Where("key_id = ?", keyID).Order("date desc").Limit(days).Find(&usage).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load usage of api key %d: %w", keyID, err)
	}
	return usage, nil
}

func (s *GormStore) CountMasterUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&MasterUser{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return count, nil
}

func (s *GormStore) CreateMasterUser(ctx context.Context, u *MasterUser) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

func (s *GormStore) GetMasterUser(ctx context.Context, username string) (*MasterUser, error) {
	var u MasterUser
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err, "admin", username)
	}
	return &u, nil
}
