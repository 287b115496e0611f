package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lonkyzooner/thunderfire-sub002/internal/audit"
	"github.com/lonkyzooner/thunderfire-sub002/internal/broadcast"
	"github.com/lonkyzooner/thunderfire-sub002/internal/config"
	"github.com/lonkyzooner/thunderfire-sub002/internal/db"
	"github.com/lonkyzooner/thunderfire-sub002/internal/dispatch"
	"github.com/lonkyzooner/thunderfire-sub002/internal/engine"
	"github.com/lonkyzooner/thunderfire-sub002/internal/intent"
	"github.com/lonkyzooner/thunderfire-sub002/internal/knowledge"
	"github.com/lonkyzooner/thunderfire-sub002/internal/location"
	"github.com/lonkyzooner/thunderfire-sub002/internal/model"
	"github.com/lonkyzooner/thunderfire-sub002/internal/reference"
	"github.com/lonkyzooner/thunderfire-sub002/internal/routing"
	"github.com/lonkyzooner/thunderfire-sub002/internal/scene"
	"github.com/lonkyzooner/thunderfire-sub002/internal/session"
	"github.com/lonkyzooner/thunderfire-sub002/internal/subscribers"
	logging "github.com/lonkyzooner/thunderfire-sub002/internal/subscribers/logging"
	"github.com/lonkyzooner/thunderfire-sub002/internal/subscribers/webhook"
	"github.com/lonkyzooner/thunderfire-sub002/internal/tools"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
	"github.com/lonkyzooner/thunderfire-sub002/internal/workflow"
)

// runtime is the fully wired engine plus what serve needs to start and stop
// it.
type runtime struct {
	engine     *engine.Engine
	classifier *intent.Classifier
	remote     *tools.RemoteHost
	registry   *tools.Registry
	sessions   session.Store
	workflow   *workflow.Manager
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	gormDB, err := db.OpenGorm(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return gormDB, nil
}

func openWorkflow(gormDB *gorm.DB) (*workflow.Manager, error) {
	store, err := workflow.NewGormStoreFromDB(gormDB)
	if err != nil {
		return nil, fmt.Errorf("initialize workflow store: %w", err)
	}
	return workflow.NewManager(logger, store), nil
}

func buildRuntime(cfg config.Config) (*runtime, error) {
	gormDB, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	sessions, err := session.NewGormStoreFromDB(gormDB)
	if err != nil {
		return nil, fmt.Errorf("initialize session store: %w", err)
	}
	manager, err := openWorkflow(gormDB)
	if err != nil {
		return nil, err
	}
	complianceLog, err := audit.NewGormSink(gormDB)
	if err != nil {
		return nil, fmt.Errorf("initialize compliance log: %w", err)
	}

	dataset, err := reference.Load(cfg.ReferenceFile)
	if err != nil {
		return nil, fmt.Errorf("load reference dataset: %w", err)
	}

	registry := model.DefaultRegistry()
	backends := engine.Backends{
		Fast:     newBackend(registry, config.SlotFast, cfg.Fast),
		Legal:    newBackend(registry, config.SlotLegal, cfg.Legal),
		General:  newBackend(registry, config.SlotGeneral, cfg.General),
		Fallback: newBackend(registry, config.SlotFallback, cfg.Fallback),
	}
	for slot, b := range cfg.Slots() {
		if !b.Configured() {
			logger.Info("reply backend not configured", zap.String("backend", slot))
		}
	}

	var classifierBackend intent.Backend
	if cfg.Classifier.Configured() {
		classifierBackend = intent.NewModelBackend(newBackend(registry, config.SlotClassifier, cfg.Classifier))
	}
	classifier := intent.NewClassifier(logger, classifierBackend, cfg.CollaboratorTimeout)

	toolRegistry := tools.NewRegistry()
	if err := registerBuiltinTools(toolRegistry, sessions); err != nil {
		return nil, err
	}
	var remote *tools.RemoteHost
	if len(cfg.ToolHosts) > 0 {
		hosts := make([]tools.HostConfig, 0, len(cfg.ToolHosts))
		for _, h := range cfg.ToolHosts {
			hosts = append(hosts, tools.HostConfig{Name: h.Name, BaseURL: h.BaseURL})
		}
		remote = tools.NewRemoteHost(logger, hosts)
	}

	client := &http.Client{Timeout: cfg.CollaboratorTimeout}
	var routeBackend routing.Backend
	if cfg.RoutingURL != "" {
		routeBackend = routing.NewHTTPBackend(cfg.RoutingURL, routing.WithHTTPClient(client))
	}
	defaultLocation := location.Coordinates{Lat: cfg.DefaultLocation.Lat, Lon: cfg.DefaultLocation.Lon}
	var locator location.Provider = location.Static{Coordinates: defaultLocation}
	if cfg.LocationURL != "" {
		locator = location.NewHTTPProvider(cfg.LocationURL, client)
	}
	var retriever knowledge.Retriever = knowledge.None{}
	if cfg.KnowledgeURL != "" {
		retriever = knowledge.NewHTTPRetriever(cfg.KnowledgeURL, client)
	}

	subs := []subscribers.Subscriber{logging.New(logger)}
	for idx, webhookURL := range cfg.WebhookURLs {
		subs = append(subs, webhook.New(webhookSubscriberName(idx, webhookURL), webhookURL))
	}

	eng, err := engine.New(engine.Deps{
		Logger:      logger,
		Sessions:    sessions,
		Workflow:    manager,
		Scenes:      scene.NewTracker(),
		Classifier:  classifier,
		Routing:     routeBackend,
		Location:    locator,
		Knowledge:   retriever,
		Tools:       toolRegistry,
		Reference:   dataset,
		Audit:       audit.Multi{audit.NewLogSink(logger), complianceLog},
		Broadcaster: broadcast.New(),
		Dispatcher:  dispatch.New(logger, subs),
		Backends:    backends,
	}, engine.Options{
		HistoryWindow:       cfg.HistoryWindow,
		CollaboratorTimeout: cfg.CollaboratorTimeout,
		ReplyTimeout:        cfg.ReplyTimeout,
		DefaultLocation:     defaultLocation,
	})
	if err != nil {
		return nil, err
	}
	return &runtime{
		engine:     eng,
		classifier: classifier,
		remote:     remote,
		registry:   toolRegistry,
		sessions:   sessions,
		workflow:   manager,
	}, nil
}

// close stops the engine first so no pass writes to a closed store.
func (r *runtime) close() error {
	r.engine.Close()
	return errors.Join(r.workflow.Close(), r.sessions.Close())
}

func newBackend(registry *model.Registry, slot string, b config.BackendConfig) *model.Backend {
	return model.NewBackend(registry, slot, b.Provider, b.Model, b.APIKey, b.Endpoint)
}

// registerBuiltinTools adds the in-process tools. unit_status treats the
// unit id as a user of the caller's tenant and summarizes that session.
func registerBuiltinTools(registry *tools.Registry, sessions session.Store) error {
	return errors.Join(
		registry.Register(tools.CurrentTime(nil)),
		registry.Register(tools.UnitStatus(sessionUnitStatus(sessions))),
	)
}

func sessionUnitStatus(sessions session.Store) func(context.Context, string) (string, bool) {
	return func(ctx context.Context, unit string) (string, bool) {
		rec, err := sessions.Get(ctx, types.NewSessionKey(tools.TenantFromContext(ctx), unit))
		if err != nil || len(rec.ConversationHistory) == 0 {
			return "", false
		}
		scenario, _ := rec.SituationalData["scenario_type"].(string)
		if scenario == "" {
			scenario = types.ScenarioPatrol
		}
		status := "on " + strings.ReplaceAll(scenario, "_", " ")
		if threat, _ := rec.SituationalData["threat_level"].(string); threat != "" {
			status += ", threat " + threat
		}
		if last, _ := rec.SituationalData["last_intent"].(string); last != "" {
			status += ", last reported " + strings.ReplaceAll(last, "_", " ")
		}
		return status, true
	}
}

func webhookSubscriberName(index int, webhookURL string) string {
	parsed, err := url.Parse(webhookURL)
	if err == nil {
		host := strings.TrimSpace(parsed.Host)
		if host != "" {
			return host
		}
	}
	return fmt.Sprintf("webhook-%d", index+1)
}
