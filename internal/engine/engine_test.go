package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/config"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/engine"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/prompting"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/provider"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/storage"
)

// Mocks

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Save(key string, v interface{}) error {
	args := m.Called(key, v)
	return args.Error(0)
}

func (m *MockStorage) Load(key string, v interface{}) error {
	args := m.Called(key, v)
	return args.Error(0)
}

func (m *MockStorage) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockLLMProvider struct {
	mock.Mock
}

func (m *MockLLMProvider) Generate(ctx context.Context, prompt string, opts provider.Options) (*provider.Completion, error) {
	args := m.Called(ctx, prompt, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Completion), args.Error(1)
}

func (m *MockLLMProvider) Name() string {
	return "mock"
}

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.LLM.APIKey = "test-key"
	cfg.Throttle.MinDelay = 0
	return cfg
}

func newTestEngine(t *testing.T) (*engine.Engine, *MockLLMProvider, *storage.FileStorage) {
	t.Helper()
	store, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	logger := logrus.New().WithField("test", "engine")
	eng, err := engine.NewEngine(testConfig(), logger, store)
	require.NoError(t, err)

	llm := new(MockLLMProvider)
	eng.LLM = llm
	return eng, llm, store
}

func TestNewEngine(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	assert.NotNil(t, eng.Prompts)
	assert.NotNil(t, eng.Throttle)
	assert.NotNil(t, eng.Usage)
	assert.False(t, eng.Stats.StartTime.IsZero())

	settings := eng.Settings()
	assert.Equal(t, "test-key", settings.APIKey)
	assert.Equal(t, 0.7, settings.Temperature)
	assert.Equal(t, 1000, settings.MaxTokens)
	assert.Equal(t, int64(0), eng.UsageStats().Requests)
}

func TestNewEngineLoadError(t *testing.T) {
	store := new(MockStorage)
	store.On("Load", "settings", mock.Anything).Return(errors.New("disk on fire"))

	_, err := engine.NewEngine(testConfig(), logrus.New().WithField("test", "engine"), store)
	assert.ErrorContains(t, err, "disk on fire")
}

func TestSend(t *testing.T) {
	eng, llm, _ := newTestEngine(t)

	llm.On("Generate", mock.Anything, "Analyze: fever", provider.Options{
		Model:       eng.Settings().Model,
		Temperature: 0.7,
		MaxTokens:   1000,
		APIKey:      "test-key",
	}).Return(&provider.Completion{
		Content: "Possible viral infection.",
		Model:   "llama3-8b-8192",
		Usage:   provider.Usage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000},
	}, nil).Once()

	res, err := eng.Send(context.Background(), engine.ZeroShot, "  Analyze: fever \n")
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, engine.ZeroShot, res.Mode)
	assert.Equal(t, "mock", res.Provider)
	assert.Equal(t, "Possible viral infection.", res.Content)
	assert.Equal(t, 2_000_000, res.Usage.TotalTokens)
	assert.InDelta(t, 0.13, res.CostUSD, 1e-9)
	assert.Equal(t, int64(1), res.Totals.Requests)
	assert.Equal(t, int64(2_000_000), eng.UsageStats().TotalTokens)
	llm.AssertExpectations(t)
}

func TestSendEmptyPrompt(t *testing.T) {
	eng, llm, _ := newTestEngine(t)

	_, err := eng.Send(context.Background(), engine.Dynamic, "   ")
	assert.ErrorIs(t, err, engine.ErrEmptyPrompt)
	llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendProviderError(t *testing.T) {
	eng, llm, _ := newTestEngine(t)

	upstream := &provider.StatusError{Provider: "mock", StatusCode: 401, Message: "Invalid API Key"}
	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(nil, upstream)

	_, err := eng.Send(context.Background(), engine.MultiShot, "hello")
	var statusErr *provider.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 401, statusErr.StatusCode)
	assert.Equal(t, int64(0), eng.UsageStats().Requests)
}

func TestSendCancelled(t *testing.T) {
	eng, llm, _ := newTestEngine(t)

	// Hold every slot so Acquire has to wait
	var releases []func()
	for i := 0; i < eng.Config.Throttle.MaxConcurrency; i++ {
		release, err := eng.Throttle.Acquire(context.Background())
		require.NoError(t, err)
		releases = append(releases, release)
	}
	defer func() {
		for _, release := range releases {
			release()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Send(ctx, engine.ZeroShot, "hello")
	assert.ErrorIs(t, err, context.Canceled)
	llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestUsagePersistsAcrossRestart(t *testing.T) {
	eng, llm, store := newTestEngine(t)

	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(&provider.Completion{
		Content: "ok",
		Model:   "m",
		Usage:   provider.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil)

	_, err := eng.Send(context.Background(), engine.ZeroShot, "one")
	require.NoError(t, err)
	_, err = eng.Send(context.Background(), engine.ZeroShot, "two")
	require.NoError(t, err)

	restarted, err := engine.NewEngine(testConfig(), logrus.New().WithField("test", "engine"), store)
	require.NoError(t, err)
	stats := restarted.UsageStats()
	assert.Equal(t, int64(2), stats.Requests)
	assert.Equal(t, int64(30), stats.TotalTokens)

	require.NoError(t, restarted.ResetUsage())
	assert.Equal(t, int64(0), restarted.UsageStats().Requests)

	again, err := engine.NewEngine(testConfig(), logrus.New().WithField("test", "engine"), store)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.UsageStats().Requests)
}

func TestUpdateSettings(t *testing.T) {
	eng, _, store := newTestEngine(t)

	temp := 1.2
	tokens := 256
	model := "llama3-70b-8192"
	key := "  new-key  "
	updated, err := eng.UpdateSettings(engine.SettingsUpdate{
		APIKey:      &key,
		Model:       &model,
		Temperature: &temp,
		MaxTokens:   &tokens,
	})
	require.NoError(t, err)
	assert.Equal(t, engine.Settings{APIKey: "new-key", Model: model, Temperature: 1.2, MaxTokens: 256}, updated)
	assert.Equal(t, updated, eng.Settings())

	restarted, err := engine.NewEngine(testConfig(), logrus.New().WithField("test", "engine"), store)
	require.NoError(t, err)
	assert.Equal(t, updated, restarted.Settings())
}

func TestUpdateSettingsValidation(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	before := eng.Settings()

	tests := []struct {
		name     string
		update   engine.SettingsUpdate
		expected error
	}{
		{"negative temperature", engine.SettingsUpdate{Temperature: ptr(-0.1)}, engine.ErrInvalidTemperature},
		{"temperature too high", engine.SettingsUpdate{Temperature: ptr(2.5)}, engine.ErrInvalidTemperature},
		{"zero max tokens", engine.SettingsUpdate{MaxTokens: ptr(0)}, engine.ErrInvalidMaxTokens},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.UpdateSettings(tt.update)
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, before, eng.Settings())
		})
	}

	// Bounds are inclusive
	_, err := eng.UpdateSettings(engine.SettingsUpdate{Temperature: ptr(2.0)})
	assert.NoError(t, err)
	_, err = eng.UpdateSettings(engine.SettingsUpdate{Temperature: ptr(0.0)})
	assert.NoError(t, err)
}

func TestUpdateSettingsSaveError(t *testing.T) {
	store := new(MockStorage)
	store.On("Load", mock.Anything, mock.Anything).Return(storage.ErrNotFound)
	store.On("Save", "settings", mock.Anything).Return(errors.New("read-only"))

	eng, err := engine.NewEngine(testConfig(), logrus.New().WithField("test", "engine"), store)
	require.NoError(t, err)

	_, err = eng.UpdateSettings(engine.SettingsUpdate{Temperature: ptr(1.0)})
	assert.ErrorContains(t, err, "read-only")
	store.AssertExpectations(t)
}

func TestPromptWrappers(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	eng.Prompts.UpdateContext(prompting.Context{
		prompting.FieldPatientAge:     "45",
		prompting.FieldMedicalHistory: "diabetes, hypertension",
	})

	p := eng.GenerateMedicalAssessment("chest pain, shortness of breath, sweating", nil)
	assert.Equal(t, prompting.Diagnosis, p.Category)
	assert.Equal(t, []string{"diabetes", "cardiac"}, p.Advisories)

	p = eng.GenerateTreatmentRecommendation("Type 2 Diabetes", nil)
	assert.Equal(t, prompting.Treatment, p.Category)

	p = eng.GenerateDynamicPrompt("unknown", "headache", nil)
	assert.Contains(t, p.Text, "Analyze: headache")
}

func ptr[T any](v T) *T {
	return &v
}
