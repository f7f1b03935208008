package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/repository/memstore"
	apperrors "github.com/stanachoad2-cyber/MaintenanceApp/pkg/util"
)

// recordingCache is an in-process SettingsCache that counts invalidations.
type recordingCache struct {
	lists       map[domain.SettingsName]domain.SettingsList
	invalidated []domain.SettingsName
}

func newRecordingCache() *recordingCache {
	return &recordingCache{lists: map[domain.SettingsName]domain.SettingsList{}}
}

func (c *recordingCache) Get(_ context.Context, name domain.SettingsName) (*domain.SettingsList, bool) {
	list, ok := c.lists[name]
	if !ok {
		return nil, false
	}
	return &list, true
}

func (c *recordingCache) Set(_ context.Context, list *domain.SettingsList) {
	c.lists[list.Name] = *list
}

func (c *recordingCache) Invalidate(_ context.Context, name domain.SettingsName) {
	delete(c.lists, name)
	c.invalidated = append(c.invalidated, name)
}

func TestSettingsListUnknownAndEmpty(t *testing.T) {
	svc := NewSettingsService(SettingsDependencies{Repo: memstore.New().Settings()})
	ctx := context.Background()

	_, err := svc.List(ctx, "colours")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	list, err := svc.List(ctx, domain.SettingsJobTypes)
	require.NoError(t, err)
	assert.NotNil(t, list.Items)
	assert.Empty(t, list.Items)
}

func TestSettingsAddUpdateRemove(t *testing.T) {
	cache := newRecordingCache()
	svc := NewSettingsService(SettingsDependencies{Repo: memstore.New().Settings(), Cache: cache})
	ctx := context.Background()

	list, err := svc.Add(ctx, admin, domain.SettingsDepartments, domain.SettingItem{Name: " Production ", Code: " prod "})
	require.NoError(t, err)
	assert.Equal(t, []domain.SettingItem{{Name: "Production", Code: "PROD"}}, list.Items)

	_, err = svc.Add(ctx, admin, domain.SettingsDepartments, domain.SettingItem{Name: "Production"})
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
	_, err = svc.Add(ctx, admin, domain.SettingsDepartments, domain.SettingItem{Name: "  "})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	_, err = svc.Add(ctx, sup, domain.SettingsDepartments, domain.SettingItem{Name: "QA"})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	list, err = svc.Add(ctx, admin, domain.SettingsJobTypes, domain.SettingItem{Name: "เครื่องจักร", Code: "X"})
	require.NoError(t, err)
	assert.Empty(t, list.Items[0].Code, "only departments carry codes")

	// warm the cache, then make sure writes drop it
	_, err = svc.List(ctx, domain.SettingsDepartments)
	require.NoError(t, err)
	_, ok := cache.lists[domain.SettingsDepartments]
	require.True(t, ok)

	list, err = svc.Update(ctx, admin, domain.SettingsDepartments, "Production", domain.SettingItem{Name: "Production Line", Code: "PL"})
	require.NoError(t, err)
	assert.Equal(t, "Production Line", list.Items[0].Name)
	_, ok = cache.lists[domain.SettingsDepartments]
	assert.False(t, ok)

	_, err = svc.Update(ctx, admin, domain.SettingsDepartments, "Nope", domain.SettingItem{Name: "X"})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	list, err = svc.Remove(ctx, admin, domain.SettingsDepartments, "Production Line")
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	_, err = svc.Remove(ctx, admin, domain.SettingsDepartments, "Production Line")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	fresh, err := svc.List(ctx, domain.SettingsDepartments)
	require.NoError(t, err)
	assert.Empty(t, fresh.Items)
	assert.Contains(t, cache.invalidated, domain.SettingsJobTypes)
}

func TestUpdateRejectsRenameOntoExisting(t *testing.T) {
	svc := NewSettingsService(SettingsDependencies{Repo: memstore.New().Settings()})
	ctx := context.Background()
	_, err := svc.Add(ctx, admin, domain.SettingsCauseCategories, domain.SettingItem{Name: "Dirty"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, admin, domain.SettingsCauseCategories, domain.SettingItem{Name: "Broken"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, admin, domain.SettingsCauseCategories, "Dirty", domain.SettingItem{Name: "Broken"})
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestParseSettingsFileAndSeed(t *testing.T) {
	const seed = `
departments:
  - name: Production
    code: prod
  - name: QA
job_types:
  - name: เครื่องจักร
  - name: เครื่องจักร
  - name: อุปกรณ์
`
	lists, err := ParseSettingsFile(strings.NewReader(seed))
	require.NoError(t, err)
	require.Len(t, lists, 2)

	svc := NewSettingsService(SettingsDependencies{Repo: memstore.New().Settings()})
	ctx := context.Background()
	require.NoError(t, svc.Seed(ctx, lists))

	depts, err := svc.List(ctx, domain.SettingsDepartments)
	require.NoError(t, err)
	assert.Equal(t, "PROD", depts.DepartmentCode("Production"))
	assert.Equal(t, domain.DefaultDepartmentCode, depts.DepartmentCode("QA"))

	jobs, err := svc.List(ctx, domain.SettingsJobTypes)
	require.NoError(t, err)
	assert.Len(t, jobs.Items, 2, "duplicates collapse")

	_, err = ParseSettingsFile(strings.NewReader("colours:\n  - name: red\n"))
	assert.Error(t, err)

	empty, err := ParseSettingsFile(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
