package preferences

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/infrastructure/store/mocks"
)

func stored(t *testing.T, kv *mocks.MockKV) Preferences {
	t.Helper()
	raw, ok := kv.GetData(StorageKey)
	require.True(t, ok, "preferences were not persisted")
	var p Preferences
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}

// ============================================
// Open Tests
// ============================================

func TestOpen_DefaultsWhenEmpty(t *testing.T) {
	kv := mocks.NewMockKV()

	s := Open(kv, zap.NewNop())

	assert.Equal(t, Defaults(), s.Get())
	assert.Empty(t, kv.SetCalls, "opening does not write")
}

func TestOpen_LoadsStoredAndFillsMissingFields(t *testing.T) {
	kv := mocks.NewMockKV()
	kv.SetData(StorageKey, []byte(`{"theme":"dark","layout":{"sidebar_collapsed":true}}`))

	s := Open(kv, zap.NewNop())

	p := s.Get()
	assert.Equal(t, ThemeDark, p.Theme)
	assert.True(t, p.Layout.SidebarCollapsed)
	assert.Equal(t, DensityComfortable, p.Layout.Density)
	assert.Equal(t, "USD", p.Currency)
}

func TestOpen_CorruptDataFallsBack(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":      `{theme:`,
		"invalid value": `{"theme":"purple"}`,
	} {
		t.Run(name, func(t *testing.T) {
			kv := mocks.NewMockKV()
			kv.SetData(StorageKey, []byte(raw))

			s := Open(kv, zap.NewNop())

			assert.Equal(t, Defaults(), s.Get())
		})
	}
}

func TestOpen_StorageErrorFallsBack(t *testing.T) {
	kv := mocks.NewMockKV()
	kv.GetErr = errors.New("disk gone")

	s := Open(kv, zap.NewNop())

	assert.Equal(t, Defaults(), s.Get())
}

// ============================================
// Mutation Tests
// ============================================

func TestUpdate_PersistsSynchronously(t *testing.T) {
	kv := mocks.NewMockKV()
	s := Open(kv, zap.NewNop())

	require.NoError(t, s.Update(func(p *Preferences) { p.Language = "fr" }))

	assert.Equal(t, "fr", s.Get().Language)
	assert.Equal(t, "fr", stored(t, kv).Language)
	assert.Equal(t, 1, kv.SetCount(StorageKey))
}

func TestUpdate_InvalidLeavesStateUntouched(t *testing.T) {
	kv := mocks.NewMockKV()
	s := Open(kv, zap.NewNop())

	err := s.Update(func(p *Preferences) { p.Layout.Density = "cramped" })

	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, DensityComfortable, s.Get().Layout.Density)
	assert.Empty(t, kv.SetCalls)
}

func TestUpdate_StorageFailureLeavesStateUntouched(t *testing.T) {
	kv := mocks.NewMockKV()
	kv.SetErr = errors.New("quota exceeded")
	s := Open(kv, zap.NewNop())

	err := s.ToggleTheme()

	require.Error(t, err)
	assert.Equal(t, ThemeLight, s.Get().Theme)
}

func TestSet_DottedKey(t *testing.T) {
	kv := mocks.NewMockKV()
	s := Open(kv, zap.NewNop())

	require.NoError(t, s.Set("notifications.low_stock", false))
	require.NoError(t, s.Set("theme", "auto"))

	p := s.Get()
	assert.False(t, p.Notifications.LowStock)
	assert.True(t, p.Notifications.OrderStatus, "siblings untouched")
	assert.Equal(t, ThemeAuto, p.Theme)
	assert.Equal(t, p, stored(t, kv))
}

func TestSet_Errors(t *testing.T) {
	s := Open(mocks.NewMockKV(), zap.NewNop())

	assert.ErrorIs(t, s.Set("notifications.sms", true), ErrUnknownPreference)
	assert.ErrorIs(t, s.Set("colour", "red"), ErrUnknownPreference)
	assert.ErrorIs(t, s.Set("notifications.push", "yes"), ErrInvalidValue)
	assert.ErrorIs(t, s.Set("notifications", true), ErrInvalidValue)
	assert.ErrorIs(t, s.Set("accessibility.font_size", "huge"), ErrInvalidValue)
	assert.Equal(t, Defaults(), s.Get())
}

func TestMerge(t *testing.T) {
	s := Open(mocks.NewMockKV(), zap.NewNop())
	require.NoError(t, s.Set("language", "de"))

	err := s.Merge(map[string]any{
		"currency":      "EUR",
		"accessibility": map[string]any{"high_contrast": true},
		"language":      nil,
	})

	require.NoError(t, err)
	p := s.Get()
	assert.Equal(t, "EUR", p.Currency)
	assert.True(t, p.Accessibility.HighContrast)
	assert.Equal(t, FontMedium, p.Accessibility.FontSize)
	assert.Equal(t, "en", p.Language, "null restores the default")
}

func TestToggles(t *testing.T) {
	s := Open(mocks.NewMockKV(), zap.NewNop())

	require.NoError(t, s.ToggleTheme())
	assert.Equal(t, ThemeDark, s.Get().Theme)
	require.NoError(t, s.ToggleTheme())
	assert.Equal(t, ThemeLight, s.Get().Theme)

	require.NoError(t, s.Set("theme", "auto"))
	require.NoError(t, s.ToggleTheme())
	assert.Equal(t, ThemeLight, s.Get().Theme)

	require.NoError(t, s.ToggleSidebar())
	assert.True(t, s.Get().Layout.SidebarCollapsed)
}

func TestReset(t *testing.T) {
	kv := mocks.NewMockKV()
	s := Open(kv, zap.NewNop())
	require.NoError(t, s.ToggleSidebar())

	calls := 0
	sub := s.Subscribe(func() { calls++ })
	defer sub.Close()

	require.NoError(t, s.Reset())
	assert.Equal(t, Defaults(), s.Get())
	assert.Equal(t, Defaults(), stored(t, kv))
	assert.Equal(t, 1, calls)
}
