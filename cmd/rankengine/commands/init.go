package commands

import (
	"fmt"

	"github.com/aegis/rankengine/internal/calendar"
	"github.com/aegis/rankengine/internal/engine"
	"github.com/aegis/rankengine/internal/fetcher"
	"github.com/aegis/rankengine/internal/pending"
	"github.com/aegis/rankengine/internal/pipeline"
	"github.com/aegis/rankengine/internal/pollers/attribute"
	"github.com/aegis/rankengine/internal/pollers/price"
	"github.com/aegis/rankengine/internal/scheduler"
	"github.com/aegis/rankengine/internal/scores"
	"github.com/aegis/rankengine/internal/store/repos"
	"github.com/aegis/rankengine/internal/tracker"
	"github.com/aegis/rankengine/pkg/config"
	"github.com/aegis/rankengine/pkg/database"
	"github.com/aegis/rankengine/pkg/logger"
	"github.com/aegis/rankengine/pkg/redis"
)

// deps bundles the constructed dependency graph shared by every subcommand
// that needs more than just an engine — the scheduler command also needs
// the individual poller jobs to register.
type deps struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	eng   *engine.Engine
	price *price.Runner
	attr  *attribute.Runner
}

// initDeps builds the full dependency graph: config, logger, database,
// cache, fetcher, repositories, pollers and the engine facade over them.
func initDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(redisClient, "rankengine")

	cal, err := calendar.New(cfg.Calendar)
	if err != nil {
		return nil, fmt.Errorf("build market calendar: %w", err)
	}

	fetchClient := fetcher.New(cfg, log)

	metadataRepo := repos.NewMetadataRepository(db.Pool)
	priceRepo := repos.NewPriceRepository(db.Pool)
	scoreRepo := repos.NewScoreRepository(db.Pool)
	pendingRepo := repos.NewPendingRepository(db.Pool)
	trackerRepo := repos.NewTrackerRepository(db.Pool)

	scoreStore := scores.New(scoreRepo, cache)
	tr := tracker.New(trackerRepo)
	priceLedger := pending.New(pendingRepo, cfg.Scheduler.MaxRetries)
	attrLedger := pending.New(pendingRepo, cfg.Scheduler.MaxRetries)

	exec := pipeline.New(metadataRepo, priceRepo)
	priceJob := price.New(fetchClient, priceRepo, tr, priceLedger, scoreStore, cal, log)
	attrJob := attribute.New(fetchClient, metadataRepo, attrLedger, cfg.Scheduler.InstanceID, log)

	eng := engine.New(metadataRepo, priceRepo, scoreStore, exec, priceJob, attrJob, tr, priceLedger, attrLedger, cal, log)

	return &deps{cfg: cfg, log: log, db: db, eng: eng, price: priceJob, attr: attrJob}, nil
}

// buildScheduler registers the two pollers on a fresh Scheduler.
func buildScheduler(d *deps) (*scheduler.Scheduler, error) {
	sched := scheduler.New(d.log)
	if err := sched.AddJob(d.price); err != nil {
		return nil, fmt.Errorf("register price poller: %w", err)
	}
	if err := sched.AddJob(d.attr); err != nil {
		return nil, fmt.Errorf("register attribute poller: %w", err)
	}
	return sched, nil
}
