package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/repository"
	apperrors "github.com/stanachoad2-cyber/MaintenanceApp/pkg/util"
)

// SettingsService manages the dropdown lists.
type SettingsService struct {
	repo   repository.SettingsRepository
	cache  SettingsCache
	logger *zap.Logger
	// writes are read-modify-write on a whole list
	mu sync.Mutex
}

// SettingsDependencies bundles collaborators for settings service.
type SettingsDependencies struct {
	Repo   repository.SettingsRepository
	Cache  SettingsCache
	Logger *zap.Logger
}

// NewSettingsService constructs the service.
func NewSettingsService(deps SettingsDependencies) *SettingsService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: deps.Repo, cache: deps.Cache, logger: logger}
}

// List returns a list by name. Lists never written yet come back empty.
func (s *SettingsService) List(ctx context.Context, name domain.SettingsName) (*domain.SettingsList, error) {
	if !name.Valid() {
		return nil, apperrors.NewNotFound("settings list", map[string]any{"name": name})
	}
	if s.cache != nil {
		if list, ok := s.cache.Get(ctx, name); ok {
			return list, nil
		}
	}
	list, err := s.repo.Get(ctx, name)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		list = &domain.SettingsList{Name: name}
	}
	if list.Items == nil {
		list.Items = []domain.SettingItem{}
	}
	if s.cache != nil {
		s.cache.Set(ctx, list)
	}
	return list, nil
}

// Add appends an item. Names are unique within a list.
func (s *SettingsService) Add(ctx context.Context, actor *domain.User, name domain.SettingsName, item domain.SettingItem) (*domain.SettingsList, error) {
	return s.modify(ctx, actor, name, func(list *domain.SettingsList) error {
		item, err := normalizeItem(name, item)
		if err != nil {
			return err
		}
		if _, exists := list.Find(item.Name); exists {
			return apperrors.NewConflict("item already exists", map[string]any{"name": item.Name})
		}
		list.Items = append(list.Items, item)
		return nil
	})
}

// Update replaces the item called oldName.
func (s *SettingsService) Update(ctx context.Context, actor *domain.User, name domain.SettingsName, oldName string, item domain.SettingItem) (*domain.SettingsList, error) {
	return s.modify(ctx, actor, name, func(list *domain.SettingsList) error {
		item, err := normalizeItem(name, item)
		if err != nil {
			return err
		}
		idx := indexOf(list.Items, oldName)
		if idx < 0 {
			return apperrors.NewNotFound("settings item", map[string]any{"name": oldName})
		}
		if item.Name != oldName {
			if _, exists := list.Find(item.Name); exists {
				return apperrors.NewConflict("item already exists", map[string]any{"name": item.Name})
			}
		}
		list.Items[idx] = item
		return nil
	})
}

// Remove deletes the item called itemName.
func (s *SettingsService) Remove(ctx context.Context, actor *domain.User, name domain.SettingsName, itemName string) (*domain.SettingsList, error) {
	return s.modify(ctx, actor, name, func(list *domain.SettingsList) error {
		idx := indexOf(list.Items, itemName)
		if idx < 0 {
			return apperrors.NewNotFound("settings item", map[string]any{"name": itemName})
		}
		list.Items = append(list.Items[:idx], list.Items[idx+1:]...)
		return nil
	})
}

func (s *SettingsService) modify(ctx context.Context, actor *domain.User, name domain.SettingsName, fn func(*domain.SettingsList) error) (*domain.SettingsList, error) {
	if !actor.IsSuperAdmin() {
		return nil, apperrors.NewForbidden("super admin required")
	}
	if !name.Valid() {
		return nil, apperrors.NewNotFound("settings list", map[string]any{"name": name})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.repo.Get(ctx, name)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		list = &domain.SettingsList{Name: name}
	}
	if err := fn(list); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, list); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, name)
	}
	s.logger.Info("settings updated", zap.String("name", string(name)), zap.String("actor", actor.Username), zap.Int("items", len(list.Items)))
	return list, nil
}

// Seed replaces whole lists, typically from a YAML file at install time.
func (s *SettingsService) Seed(ctx context.Context, lists map[domain.SettingsName][]domain.SettingItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range domain.AllSettings {
		items, ok := lists[name]
		if !ok {
			continue
		}
		list := &domain.SettingsList{Name: name, Items: make([]domain.SettingItem, 0, len(items))}
		for _, raw := range items {
			item, err := normalizeItem(name, raw)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if _, exists := list.Find(item.Name); exists {
				continue
			}
			list.Items = append(list.Items, item)
		}
		if err := s.repo.Save(ctx, list); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		if s.cache != nil {
			s.cache.Invalidate(ctx, name)
		}
		s.logger.Info("settings seeded", zap.String("name", string(name)), zap.Int("items", len(list.Items)))
	}
	return nil
}

// settingsFile is the YAML seed layout: one key per list.
type settingsFile map[string][]domain.SettingItem

// ParseSettingsFile reads a YAML seed file. Unknown list names are rejected.
func ParseSettingsFile(r io.Reader) (map[domain.SettingsName][]domain.SettingItem, error) {
	var raw settingsFile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[domain.SettingsName][]domain.SettingItem{}, nil
		}
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	out := make(map[domain.SettingsName][]domain.SettingItem, len(raw))
	for key, items := range raw {
		name := domain.SettingsName(key)
		if !name.Valid() {
			return nil, fmt.Errorf("unknown settings list %q", key)
		}
		out[name] = items
	}
	return out, nil
}

func normalizeItem(list domain.SettingsName, item domain.SettingItem) (domain.SettingItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	item.Code = strings.ToUpper(strings.TrimSpace(item.Code))
	if item.Name == "" {
		return item, apperrors.NewValidationError("item name required", nil)
	}
	if !list.HasCodes() {
		item.Code = ""
	}
	return item, nil
}

func indexOf(items []domain.SettingItem, name string) int {
	for i, item := range items {
		if item.Name == name {
			return i
		}
	}
	return -1
}
