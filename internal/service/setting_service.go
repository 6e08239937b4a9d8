package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rewrz/word-soul/internal/model"
	"github.com/rewrz/word-soul/internal/repository"
)

var ErrConfigIncomplete = errors.New("config_name and api_type are required")

// SettingService manages per-user AI provider configurations
type SettingService struct {
	settings repository.SettingRepo
}

func NewSettingService(settings repository.SettingRepo) *SettingService {
	return &SettingService{settings: settings}
}

func (s *SettingService) List(ctx context.Context, userID int64) ([]*model.AIConfig, error) {
	configs, err := s.settings.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list ai configs: %w", err)
	}
	return configs, nil
}

func (s *SettingService) Create(ctx context.Context, userID int64, req *model.AIConfigRequest) (int64, error) {
	if req.ConfigName == "" || req.APIType == "" {
		return 0, ErrConfigIncomplete
	}

	id, err := s.settings.Create(ctx, &model.AIConfig{
		UserID:     userID,
		ConfigName: req.ConfigName,
		APIType:    req.APIType,
		APIKey:     req.APIKey,
		BaseURL:    req.BaseURL,
		ModelName:  req.ModelName,
	})
	if err != nil {
		return 0, fmt.Errorf("create ai config: %w", err)
	}
	return id, nil
}

// Update patches an existing config; empty request fields keep their
// current values.
func (s *SettingService) Update(ctx context.Context, userID, configID int64, req *model.AIConfigRequest) error {
	cfg, err := s.settings.GetByIDForUser(ctx, configID, userID)
	if err != nil {
		return fmt.Errorf("load ai config: %w", err)
	}
	if cfg == nil {
		return ErrConfigNotFound
	}

	if req.ConfigName != "" {
		cfg.ConfigName = req.ConfigName
	}
	if req.APIType != "" {
		cfg.APIType = req.APIType
	}
	if req.APIKey != "" {
		cfg.APIKey = req.APIKey
	}
	if req.BaseURL != "" {
		cfg.BaseURL = req.BaseURL
	}
	if req.ModelName != "" {
		cfg.ModelName = req.ModelName
	}

	if err := s.settings.Update(ctx, cfg); err != nil {
		return fmt.Errorf("update ai config: %w", err)
	}
	return nil
}

func (s *SettingService) Delete(ctx context.Context, userID, configID int64) error {
	deleted, err := s.settings.Delete(ctx, configID, userID)
	if err != nil {
		return fmt.Errorf("delete ai config: %w", err)
	}
	if !deleted {
		return ErrConfigNotFound
	}
	return nil
}
