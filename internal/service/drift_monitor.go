package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ktladder/ktladder-backend/internal/models"
	"github.com/ktladder/ktladder-backend/pkg/logger"
)

// EventRatingDrift is published when stored ratings no longer match a full replay.
const EventRatingDrift = "rating_drift_detected"

const driftCheckTimeout = 2 * time.Minute

// DriftReport is the payload of EventRatingDrift.
type DriftReport struct {
	Players int                  `json:"players"`
	Drifts  []models.RatingDrift `json:"drifts"`
}

// DriftMonitor compares stored ratings with a replay of the history on a cron
// schedule and reports mismatches. It never writes; fixing drift is left to a
// recalculation.
type DriftMonitor struct {
	recalculation *RecalculationService
	events        EventPublisher
	logger        *zap.SugaredLogger
	cron          *cron.Cron
	schedule      string
	running       bool
	mu            sync.Mutex
}

// NewDriftMonitor schedule은 초 단위 cron 표현식 또는 "@every 1h" 형식
func NewDriftMonitor(recalculation *RecalculationService, events EventPublisher, schedule string) *DriftMonitor {
	if events == nil {
		events = noopPublisher{}
	}

	log := logger.Named("drift-monitor")
	cronLog := cronLogger{log}

	return &DriftMonitor{
		recalculation: recalculation,
		events:        events,
		logger:        log,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		schedule: schedule,
	}
}

// Start 주기적 검사 시작
func (m *DriftMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	if _, err := m.cron.AddFunc(m.schedule, func() { m.Check(context.Background()) }); err != nil {
		return fmt.Errorf("invalid drift check schedule %q: %w", m.schedule, err)
	}

	m.cron.Start()
	m.running = true
	m.logger.Infow("DriftMonitor started", "schedule", m.schedule)

	return nil
}

// Stop 검사 중지 (진행 중인 검사 완료 대기)
func (m *DriftMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false

	<-m.cron.Stop().Done()
	m.logger.Infow("DriftMonitor stopped")
}

// Check runs one comparison and returns the drifted players. It is skipped, returning
// nil, while a submission or recalculation holds the rating lock.
func (m *DriftMonitor) Check(ctx context.Context) []models.RatingDrift {
	ctx, cancel := context.WithTimeout(ctx, driftCheckTimeout)
	defer cancel()

	drifts, err := m.recalculation.TryPreview(ctx)
	if errors.Is(err, ErrRatingsBusy) {
		m.logger.Infow("Ratings are being updated, drift check skipped")
		return nil
	}
	if err != nil {
		m.logger.Errorw("Drift check failed", "error", err)
		return nil
	}

	if len(drifts) == 0 {
		m.logger.Debugw("Stored ratings match replay")
		return drifts
	}

	m.logger.Warnw("Stored ratings drifted from replay", "players", len(drifts))
	m.events.Publish(EventRatingDrift, DriftReport{Players: len(drifts), Drifts: drifts})

	return drifts
}

// cronLogger routes scheduler messages to zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
