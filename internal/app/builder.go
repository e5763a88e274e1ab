package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kcourse/internal/config"
	"kcourse/internal/gateway/objectstore"
	"kcourse/internal/gateway/objectstore/sqliteblob"
	"kcourse/internal/gateway/provider"
	"kcourse/internal/gateway/supabase"
	"kcourse/internal/itinerary"
	"kcourse/internal/logger"
	"kcourse/internal/store"
	"kcourse/internal/store/gormstore"
	"kcourse/internal/store/pgstore"
	"kcourse/internal/synthesis"
	planshttp "kcourse/internal/transport/http/plans"
)

// objectBackend is the configured image store. Getter is set only when this
// service serves the images itself.
type objectBackend struct {
	Store  objectstore.Store
	Getter objectstore.Getter
	Close  func() error
}

type AppBuilder struct {
	cfg *config.Config

	providersFn   func(config.AIConfig) (*provider.Registry, error)
	promptsFn     func(string) (synthesis.PromptSource, error)
	objectStoreFn func(*config.Config) (*objectBackend, error)
	recordStoreFn func(context.Context, *config.Config) (store.PlanRepository, error)
	httpServerFn  func(planshttp.ServerConfig) (*planshttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:           cfg,
		providersFn:   buildProviders,
		promptsFn:     loadPrompts,
		objectStoreFn: buildObjectStore,
		recordStoreFn: buildRecordStore,
		httpServerFn:  planshttp.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (app *App, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	app = &App{cfg: cfg}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	registry, err := b.providersFn(cfg.AI)
	if err != nil {
		return nil, err
	}
	logger.Infof("✓ models registered: %v", registry.IDs())

	prompts, err := b.promptsFn(cfg.AI.PromptsPath)
	if err != nil {
		return nil, err
	}

	objects, err := b.objectStoreFn(cfg)
	if err != nil {
		return nil, err
	}
	if objects.Close != nil {
		app.closers = append(app.closers, objects.Close)
	}
	records, err := b.recordStoreFn(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, records.Close)

	orchestrator, err := buildOrchestrator(cfg.AI, registry, prompts, objects.Store, records)
	if err != nil {
		return nil, err
	}
	app.orchestrator = orchestrator
	logger.Infof("✓ pipeline ready: %s", orchestrator)

	var drafter planshttp.Drafter
	if id := strings.TrimSpace(cfg.AI.Roles.Itinerary); id != "" {
		model, err := registry.Chat(id)
		if err != nil {
			return nil, fmt.Errorf("ai.roles.itinerary: %w", err)
		}
		d, err := itinerary.NewDrafter(model)
		if err != nil {
			return nil, err
		}
		drafter = d
	}

	server, err := b.httpServerFn(planshttp.ServerConfig{
		Addr:        cfg.App.HTTPAddr,
		Synthesizer: orchestrator,
		Plans:       records,
		Objects:     objects.Store,
		Blobs:       objects.Getter,
		Drafter:     drafter,
		CORSOrigins: cfg.App.CORSOrigins,
		MaxUploadMB: cfg.App.MaxUploadMB,
	})
	if err != nil {
		return nil, err
	}
	app.httpServer = server
	app.Summary = newStartupSummary(cfg, registry.IDs())
	return app, nil
}

func buildProviders(ai config.AIConfig) (*provider.Registry, error) {
	models, err := ai.ResolveModelConfigs()
	if err != nil {
		return nil, err
	}
	return provider.BuildRegistry(models, provider.GuardSettingsFromConfig(ai))
}

func loadPrompts(path string) (synthesis.PromptSource, error) {
	if strings.TrimSpace(path) == "" {
		return synthesis.StaticPrompts{}, nil
	}
	reg, err := synthesis.NewPromptRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load prompts %s: %w", path, err)
	}
	logger.Infof("✓ prompts loaded from %s (hot reload on)", path)
	return reg, nil
}

func newSupabaseClient(cfg config.SupabaseConfig) *supabase.Client {
	c := supabase.NewClient(cfg.URL, cfg.Key)
	c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	return c
}

func buildObjectStore(cfg *config.Config) (*objectBackend, error) {
	objCfg := cfg.Storage.Objects
	switch objCfg.Backend {
	case "supabase":
		st := supabase.NewStorage(newSupabaseClient(cfg.Supabase), objCfg.Bucket)
		return &objectBackend{Store: st}, nil
	case "sqlite":
		st, err := sqliteblob.Open(objCfg.SQLitePath, objCfg.Bucket, cfg.App.PublicURL+"/objects")
		if err != nil {
			return nil, err
		}
		return &objectBackend{Store: st, Getter: st, Close: st.Close}, nil
	default:
		return nil, fmt.Errorf("unknown object store backend %q", objCfg.Backend)
	}
}

func buildRecordStore(ctx context.Context, cfg *config.Config) (store.PlanRepository, error) {
	recCfg := cfg.Storage.Records
	switch recCfg.Backend {
	case "supabase":
		return supabase.NewPlanTable(newSupabaseClient(cfg.Supabase), recCfg.Table), nil
	case "postgres":
		st, err := pgstore.Open(ctx, recCfg.PostgresDSN, recCfg.Table)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "sqlite":
		st, err := gormstore.NewGormStore(recCfg.SQLitePath, recCfg.Table)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown record store backend %q", recCfg.Backend)
	}
}

func buildOrchestrator(ai config.AIConfig, registry *provider.Registry, prompts synthesis.PromptSource, objects synthesis.ObjectStore, records synthesis.RecordStore) (*synthesis.Orchestrator, error) {
	roles := ai.Roles
	vision, err := registry.ChatAll(roles.Vision)
	if err != nil {
		return nil, fmt.Errorf("ai.roles.vision: %w", err)
	}
	images, err := registry.Images(roles.Image)
	if err != nil {
		return nil, fmt.Errorf("ai.roles.image: %w", err)
	}
	visual, err := synthesis.NewVisualExtractor(vision, images, objects, prompts)
	if err != nil {
		return nil, err
	}

	refiner, err := registry.Chat(roles.RefinePrompt)
	if err != nil {
		return nil, fmt.Errorf("ai.roles.refine_prompt: %w", err)
	}
	writer, err := registry.Chat(roles.PlanText)
	if err != nil {
		return nil, fmt.Errorf("ai.roles.plan_text: %w", err)
	}
	gen, err := synthesis.NewPlanGenerator(refiner, writer, prompts)
	if err != nil {
		return nil, err
	}

	panel, err := registry.ChatAll(roles.Budget)
	if err != nil {
		return nil, fmt.Errorf("ai.roles.budget: %w", err)
	}
	budget, err := synthesis.NewBudgetEstimator(panel, prompts, ai.Budget.MaxPlausible)
	if err != nil {
		return nil, err
	}
	return synthesis.NewOrchestrator(visual, gen, budget, objects, records, prompts), nil
}

type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *config.Config) *AppBuilder {
	return NewAppBuilder(cfg)
}
