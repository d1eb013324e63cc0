package main

import (
	"fmt"

	"lipa/config"
	"lipa/internal/database"
	"lipa/internal/domain"
	"lipa/internal/repository"
	"lipa/pkg/payment"

	"go.uber.org/zap"
)

// openStore builds the intent store selected by store.driver. The returned
// func releases it.
func openStore(cfg *config.Config, logger *zap.Logger) (repository.IntentStore, func(), error) {
	switch cfg.Store.Driver {
	case domain.StoreDriverBolt:
		store, err := repository.NewBoltIntentStore(cfg.Store.BoltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("bolt store: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("close bolt store", zap.Error(err))
			}
		}, nil
	case domain.StoreDriverMySQL:
		db, err := database.NewDB(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return repository.NewGormIntentStore(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	default:
		return repository.NewMemoryIntentStore(), func() {}, nil
	}
}

func newProvider(cfg *config.MpesaConfig, logger *zap.Logger) payment.Provider {
	if cfg.Provider != domain.ProviderDaraja {
		logger.Warn("using stub mpesa provider, no real pushes are sent")
		return &payment.StubProvider{}
	}
	return payment.NewDarajaProvider(payment.DarajaConfig{
		BaseURL:         cfg.BaseURL,
		ConsumerKey:     cfg.ConsumerKey,
		ConsumerSecret:  cfg.ConsumerSecret,
		ShortCode:       cfg.ShortCode,
		PassKey:         cfg.PassKey,
		PartyB:          cfg.PartyB,
		TransactionType: cfg.TransactionType,
		Timeout:         cfg.Timeout,
	}, logger)
}
