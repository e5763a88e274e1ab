package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"kcourse/internal/config"
	"kcourse/internal/gateway/provider"
	"kcourse/internal/store"
	"kcourse/internal/synthesis"
	"kcourse/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModel struct {
	id     string
	vision bool
	reply  string
}

func (m stubModel) ID() string           { return m.id }
func (m stubModel) SupportsVision() bool { return m.vision }
func (m stubModel) Call(context.Context, provider.ChatPayload) (string, error) {
	return m.reply, nil
}

type stubImages struct{ id string }

func (g stubImages) ID() string { return g.id }
func (g stubImages) GenerateImage(context.Context, string) ([]provider.Part, error) {
	return []provider.Part{
		provider.TextPart{Text: "here you go"},
		provider.ImagePart{MIMEType: "image/png", Data: []byte("png")},
	}, nil
}

func stubRegistry(config.AIConfig) (*provider.Registry, error) {
	reg := provider.NewRegistry()
	for _, m := range []stubModel{
		{id: "gemini-flash", vision: true, reply: `{"prompt":"경주 2박 3일 역사 여행 일정을 작성해줘"}`},
		{id: "groq-scout", vision: true, reply: "기와 지붕이 보이는 고궁"},
		{id: "gemini-flash-lite", reply: "첫째 날 불국사, 둘째 날 첨성대."},
		{id: "groq-kimi", reply: `{"min_budget":120000,"max_budget":300000}`},
		{id: "groq-gpt-oss", reply: `{"min_budget":"90,000원","max_budget":"250,000"}`},
		{id: "groq-maverick", reply: `{"min_budget":100000,"max_budget":280000}`},
		{id: "openai-mini", reply: `{"summary":"s","dateRange":{},"days":[]}`},
	} {
		reg.RegisterChat(m)
	}
	reg.RegisterImages(stubImages{id: "gemini-image"})
	return reg, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Storage.Objects.SQLitePath = filepath.Join(dir, "objects.db")
	cfg.Storage.Records.SQLitePath = filepath.Join(dir, "plans.db")
	return cfg
}

func TestAppBuilder_BuildsWorkingPipeline(t *testing.T) {
	cfg := testConfig(t)
	app, err := NewAppBuilder(cfg, func(b *AppBuilder) { b.providersFn = stubRegistry }).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NotNil(t, app.Orchestrator())
	require.NotNil(t, app.httpServer)
	assert.Equal(t, cfg.App.HTTPAddr, app.httpServer.Addr())
	assert.Contains(t, app.Summary.Models, "openai-mini")

	plan, err := app.Orchestrator().SynthesizeTripPlan(context.Background(), &synthesis.TripRequest{
		Destination: "경주",
		Purpose:     "역사 탐방",
		PeopleCount: 2,
		StartDate:   types.NewDate(2025, 10, 3),
		EndDate:     types.NewDate(2025, 10, 5),
	})
	require.NoError(t, err)
	assert.Equal(t, "90000", plan.AIMinBudget.String())
	assert.Equal(t, "300000", plan.AIMaxBudget.String())
	assert.Contains(t, plan.ImageURL, cfg.App.PublicURL+"/objects/gen_")
	assert.Equal(t, "첫째 날 불국사, 둘째 날 첨성대.", plan.AISuggestion)
}

func TestAppBuilder_ClosesStoresOnFailure(t *testing.T) {
	cfg := testConfig(t)
	var objectsClosed bool
	boom := errors.New("records unavailable")
	_, err := NewAppBuilder(cfg,
		func(b *AppBuilder) { b.providersFn = stubRegistry },
		func(b *AppBuilder) {
			b.objectStoreFn = func(c *config.Config) (*objectBackend, error) {
				ob, err := buildObjectStore(c)
				if err != nil {
					return nil, err
				}
				inner := ob.Close
				ob.Close = func() error {
					objectsClosed = true
					return inner()
				}
				return ob, nil
			}
		},
		func(b *AppBuilder) {
			b.recordStoreFn = func(context.Context, *config.Config) (store.PlanRepository, error) {
				return nil, boom
			}
		},
	).Build(context.Background())
	require.ErrorIs(t, err, boom)
	assert.True(t, objectsClosed)
}

func TestAppBuilder_RejectsUnknownRoleModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.AI.Roles.PlanText = "missing-model"
	_, err := NewAppBuilder(cfg, func(b *AppBuilder) { b.providersFn = stubRegistry }).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ai.roles.plan_text")
}

func TestNewApp_NilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}
