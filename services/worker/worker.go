package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/events"
	"github.com/pavitra93/go-hostel-management-system/shared/hostel"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

// WorkerStats reports what the worker has done since start
type WorkerStats struct {
	EventsProcessed  int64     `json:"events_processed"`
	EventsSkipped    int64     `json:"events_skipped"`
	StatsRefreshed   int64     `json:"stats_refreshed"`
	RefreshFailures  int64     `json:"refresh_failures"`
	Sweeps           int64     `json:"sweeps"`
	HostelsScanned   int64     `json:"hostels_scanned"`
	FindingsOpened   int64     `json:"findings_opened"`
	FindingsResolved int64     `json:"findings_resolved"`
	RetriesQueued    int64     `json:"retries_queued"`
	RetriesResolved  int64     `json:"retries_resolved"`
	RetriesAbandoned int64     `json:"retries_abandoned"`
	LastSweepAt      time.Time `json:"last_sweep_at,omitempty"`
	LastSweepError   string    `json:"last_sweep_error,omitempty"`
}

const retryBatchSize = 100

// Worker refreshes stats snapshots from domain events and periodically
// reconciles every active hostel. Refreshes that fail are queued and
// retried with backoff.
type Worker struct {
	svc      *hostel.Service
	findings *store.FindingStore
	retries  *store.RetryStore
	interval time.Duration
	now      func() time.Time
	log      *logrus.Entry

	mu    sync.Mutex
	stats WorkerStats
}

// NewWorker creates a worker that sweeps every interval
func NewWorker(svc *hostel.Service, findings *store.FindingStore, retries *store.RetryStore, interval time.Duration) *Worker {
	return &Worker{
		svc:      svc,
		findings: findings,
		retries:  retries,
		interval: interval,
		now:      time.Now,
		log:      logrus.WithField("component", "worker"),
	}
}

// HandleEvent refreshes the stats of the event's hostel when the event
// changed counts. A failed refresh is queued for retry; the consumer
// commits every message.
func (w *Worker) HandleEvent(ctx context.Context, event events.Event) error {
	if !event.Type.AffectsCounts() || event.HostelID == "" {
		w.update(func(s *WorkerStats) { s.EventsSkipped++ })
		return nil
	}

	log := w.log.WithFields(logrus.Fields{
		"event_type": event.Type,
		"hostel_id":  event.HostelID,
	})
	_, err := w.svc.Stats.Refresh(ctx, event.HostelID)
	switch {
	case err == nil:
		w.update(func(s *WorkerStats) { s.EventsProcessed++; s.StatsRefreshed++ })
		return nil
	case errors.Is(err, apperr.ErrNotFound):
		log.Warn("Event for unknown hostel, skipping")
		w.update(func(s *WorkerStats) { s.EventsSkipped++ })
		return nil
	default:
		w.update(func(s *WorkerStats) { s.EventsProcessed++; s.RefreshFailures++ })
		if _, qerr := w.retries.Enqueue(ctx, event.HostelID, event.ID, string(event.Type), err, w.now().UTC()); qerr != nil {
			log.WithError(qerr).Error("Failed to queue stats refresh retry")
			return err
		}
		w.update(func(s *WorkerStats) { s.RetriesQueued++ })
		return err
	}
}

// RetryFailed retries the queued refreshes that are due
func (w *Worker) RetryFailed(ctx context.Context) error {
	due, err := w.retries.Due(ctx, w.now().UTC(), retryBatchSize)
	if err != nil {
		return err
	}

	for i := range due {
		row := &due[i]
		log := w.log.WithFields(logrus.Fields{"hostel_id": row.HostelID, "retry_count": row.RetryCount})
		now := w.now().UTC()

		_, rerr := w.svc.Stats.Refresh(ctx, row.HostelID)
		switch {
		case rerr == nil:
			err = w.retries.MarkResolved(ctx, row, now)
			w.update(func(s *WorkerStats) { s.StatsRefreshed++; s.RetriesResolved++ })
		case errors.Is(rerr, apperr.ErrNotFound):
			err = w.retries.MarkAbandoned(ctx, row, "Hostel no longer exists", now)
			w.update(func(s *WorkerStats) { s.RetriesAbandoned++ })
		default:
			err = w.retries.MarkRetried(ctx, row, rerr, now)
			if row.Status == models.RetryStatusPermanentlyFailed {
				log.WithError(rerr).Error("Giving up on stats refresh")
				w.update(func(s *WorkerStats) { s.RetriesAbandoned++ })
			}
		}
		if err != nil {
			log.WithError(err).Error("Failed to update refresh retry")
			return err
		}
	}
	return nil
}

// RunRetries retries due refreshes every interval until ctx ends
func (w *Worker) RunRetries(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RetryFailed(ctx); err != nil && ctx.Err() == nil {
				w.log.WithError(err).Warn("Retry pass failed")
			}
		}
	}
}

// Sweep reconciles every active hostel once and records the findings
func (w *Worker) Sweep(ctx context.Context) error {
	hostels, err := w.svc.Hostels.ListActive(ctx)
	if err != nil {
		w.update(func(s *WorkerStats) { s.Sweeps++; s.LastSweepError = err.Error() })
		return err
	}

	var scanned, opened, resolved int64
	var firstErr error
	for _, h := range hostels {
		if ctx.Err() != nil {
			break
		}
		log := w.log.WithField("hostel_id", h.ID)

		report, err := w.svc.Reconciler.Reconcile(ctx, h.ID)
		if err != nil {
			log.WithError(err).Error("Reconciliation failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		scanned++

		res, err := w.findings.Record(ctx, report)
		if err != nil {
			log.WithError(err).Error("Failed to record findings")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		opened += int64(res.Opened)
		resolved += int64(res.Resolved)
		if !report.Consistent() {
			log.WithFields(logrus.Fields{
				"mismatches": len(report.Mismatches),
				"opened":     res.Opened,
				"resolved":   res.Resolved,
			}).Warn("Hostel has occupancy mismatches")
		}
	}

	w.update(func(s *WorkerStats) {
		s.Sweeps++
		s.HostelsScanned += scanned
		s.FindingsOpened += opened
		s.FindingsResolved += resolved
		s.LastSweepAt = time.Now().UTC()
		s.LastSweepError = ""
		if firstErr != nil {
			s.LastSweepError = firstErr.Error()
		}
	})
	w.log.WithFields(logrus.Fields{"hostels": scanned, "opened": opened, "resolved": resolved}).Info("Reconciliation sweep finished")
	return firstErr
}

// RunSweeps sweeps once at start and then every interval until ctx ends
func (w *Worker) RunSweeps(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
			w.log.WithError(err).Warn("Sweep finished with errors")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stats returns a snapshot of the counters
func (w *Worker) Stats() WorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Worker) update(fn func(s *WorkerStats)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.stats)
}
