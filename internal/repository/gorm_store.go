package repository

import (
	"errors"

	"lipa/internal/domain"
	"lipa/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormIntentStore struct {
	db *gorm.DB
}

func NewGormIntentStore(db *gorm.DB) *GormIntentStore {
	return &GormIntentStore{db: db}
}

func (r *GormIntentStore) Put(intent *models.PaymentIntent) error {
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(intent.Clone()).Error
}

func (r *GormIntentStore) GetByID(id string) (*models.PaymentIntent, error) {
	var p models.PaymentIntent
	err := r.db.Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormIntentStore) IndexByCheckoutRequestID(checkoutRequestID, id string) error {
	return r.index(domain.KeyKindCheckoutRequestID, checkoutRequestID, id)
}

func (r *GormIntentStore) IndexByIdempotencyKey(key, id string) error {
	return r.index(domain.KeyKindIdempotencyKey, key, id)
}

func (r *GormIntentStore) ResolveCheckoutRequestID(checkoutRequestID string) (string, error) {
	return r.resolve(domain.KeyKindCheckoutRequestID, checkoutRequestID)
}

func (r *GormIntentStore) ResolveIdempotencyKey(key string) (string, error) {
	return r.resolve(domain.KeyKindIdempotencyKey, key)
}

func (r *GormIntentStore) index(kind, key, id string) error {
	row := models.PaymentIntentKey{Kind: kind, Key: key, IntentID: id}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"intent_id"}),
	}).Create(&row).Error
}

func (r *GormIntentStore) resolve(kind, key string) (string, error) {
	var row models.PaymentIntentKey
	err := r.db.Where(map[string]any{"kind": kind, "key": key}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrIntentNotFound
	}
	if err != nil {
		return "", err
	}
	return row.IntentID, nil
}
