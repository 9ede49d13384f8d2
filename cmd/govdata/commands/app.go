package commands

import (
	"fmt"

	"github.com/mindthegap/govdata/internal/enrich"
	"github.com/mindthegap/govdata/internal/external/bls"
	"github.com/mindthegap/govdata/internal/external/census"
	"github.com/mindthegap/govdata/internal/external/fred"
	"github.com/mindthegap/govdata/internal/learn"
	"github.com/mindthegap/govdata/internal/pipeline"
	"github.com/mindthegap/govdata/internal/profiles"
	"github.com/mindthegap/govdata/internal/storage"
	"github.com/mindthegap/govdata/internal/wealth"
	"github.com/mindthegap/govdata/pkg/config"
	"github.com/mindthegap/govdata/pkg/database"
	"github.com/mindthegap/govdata/pkg/logger"
	"github.com/mindthegap/govdata/pkg/redis"
)

// app bundles the wired application dependencies shared by the
// pipeline, api, and scheduler commands.
type app struct {
	cfg          *config.Config
	logger       *logger.Logger
	db           *database.DB
	redis        *redis.Client
	orchestrator *pipeline.Orchestrator
	profileStore *profiles.Store
}

// newApp loads configuration and wires the full dependency graph.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	var cache *redis.Cache
	if redisClient.Enabled() {
		cache = redis.NewCache(redisClient, "govdata")
	}

	objects, err := storage.NewFromConfig(cfg, log)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}

	collector := enrich.NewCollector(
		census.New(cfg, log, cache),
		bls.New(cfg, log, cache),
		fred.New(cfg, log, cache),
		wealth.NewStore(db, log),
		cfg.Pipeline.Workers,
		log,
	)

	profileStore := profiles.NewStore(db, log)

	minerCfg := learn.DefaultMinerConfig()
	minerCfg.Threshold = cfg.Pipeline.PatternThreshold
	minerCfg.MinSamples = cfg.Pipeline.PatternMinCount

	orchestrator := pipeline.New(collector, profileStore, objects, minerCfg, learn.DefaultCorpusConfig(), log)

	return &app{
		cfg:          cfg,
		logger:       log,
		db:           db,
		redis:        redisClient,
		orchestrator: orchestrator,
		profileStore: profileStore,
	}, nil
}

// close releases the app's connections.
func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
