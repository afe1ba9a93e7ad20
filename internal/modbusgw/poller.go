package modbusgw

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxionwatt/modbusgw/internal/config"
	"github.com/fluxionwatt/modbusgw/internal/models"
	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Poller runs a fixed-interval sweep over every active PollingTarget,
// reading through the ClientManager, writing results into the Cache, and
// publishing them via the Publisher. Targets sharing a gateway are read
// serially (Gateway already serializes them internally); targets on
// distinct gateways run concurrently within one cycle.
type Poller struct {
	db       *gorm.DB
	mgr      *ClientManager
	cache    *Cache
	pub      *Publisher
	metrics  *Metrics
	log      logrus.FieldLogger
	interval time.Duration

	scheduler gocron.Scheduler
}

func NewPoller(cfg *config.Config, db *gorm.DB, mgr *ClientManager, cache *Cache, pub *Publisher, metrics *Metrics, log logrus.FieldLogger) (*Poller, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, newDependencyErr(err, "create poll scheduler")
	}

	return &Poller{
		db:        db,
		mgr:       mgr,
		cache:     cache,
		pub:       pub,
		metrics:   metrics,
		log:       log.WithField("component", "poller"),
		interval:  cfg.PollInterval(),
		scheduler: sched,
	}, nil
}

// Start registers the recurring poll job and begins running it.
func (p *Poller) Start(ctx context.Context) error {
	_, err := p.scheduler.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(func() { p.runCycle(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return newDependencyErr(err, "schedule poll job")
	}
	p.scheduler.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight cycle to finish.
func (p *Poller) Stop() error {
	return p.scheduler.Shutdown()
}

// runCycle reads every active polling target once, grouped by gateway so
// targets on the same transport are naturally serialized through the
// Gateway's own mutex while distinct gateways poll in parallel.
func (p *Poller) runCycle(ctx context.Context) {
	start := time.Now()

	var targets []models.PollingTarget
	if err := p.db.Where("is_active = ?", true).Order("id asc").Find(&targets).Error; err != nil {
		p.log.WithError(err).Error("load polling targets failed")
		p.metrics.RecordPollCycle(false, time.Since(start))
		return
	}

	byGateway := map[string][]models.PollingTarget{}
	var gatewayOrder []string
	for _, t := range targets {
		d, ok := p.mgr.Device(t.DeviceID)
		if !ok {
			p.metrics.RecordPollSkipped()
			p.log.WithField("device_id", t.DeviceID).WithField("target_id", t.ID).
				Warn("poll target skipped: device missing or inactive")
			continue
		}
		key := d.GatewayKey()
		if _, seen := byGateway[key]; !seen {
			gatewayOrder = append(gatewayOrder, key)
		}
		byGateway[key] = append(byGateway[key], t)
	}

	var wg sync.WaitGroup
	var failed int32
	for _, key := range gatewayOrder {
		group := byGateway[key]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, t := range group {
				select {
				case <-ctx.Done():
					return
				default:
				}
				p.pollOne(ctx, t, &failed)
			}
		}()
	}
	wg.Wait()

	p.metrics.RecordPollCycle(failed == 0, time.Since(start))
}

func (p *Poller) pollOne(ctx context.Context, t models.PollingTarget, failed *int32) {
	readStart := time.Now()
	values, err := p.mgr.Read(ctx, t.DeviceID, t.RegisterType, t.Address, t.Count)
	p.metrics.RecordModbusCall(err == nil, time.Since(readStart))

	if err != nil {
		atomic.AddInt32(failed, 1)
		p.log.WithError(err).
			WithField("device_id", t.DeviceID).
			WithField("address", t.Address).
			Warn("poll read failed")
		return
	}

	key := models.CacheKey(t.DeviceID, t.RegisterType, t.Address, t.Count)
	p.cache.Set(key, values)
	p.pub.Publish(t.DeviceID, t.RegisterType, t.Address, values)
}
