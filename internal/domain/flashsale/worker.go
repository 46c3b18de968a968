package flashsale

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Worker periodically drains the Redis traffic buffer into campaign stats
type Worker struct {
	repo     CampaignRepository
	buffer   *RedisTrafficBuffer
	interval time.Duration
	stopCh   chan struct{}
}

// NewWorker creates a new stats flush worker
func NewWorker(repo CampaignRepository, buffer *RedisTrafficBuffer, interval time.Duration) *Worker {
	if interval == 0 {
		interval = 15 * time.Second
	}
	return &Worker{
		repo:     repo,
		buffer:   buffer,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background worker
func (w *Worker) Start() {
	log.Info().Dur("interval", w.interval).Msg("Starting flash sale stats worker...")
	go w.loop()
}

// Stop gracefully stops the background worker, flushing once more so
// buffered counters survive a shutdown
func (w *Worker) Stop() {
	log.Info().Msg("Stopping flash sale stats worker...")
	close(w.stopCh)
	w.flush()
}

func (w *Worker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deltas, err := w.buffer.Drain(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to drain traffic buffer")
		return
	}
	if len(deltas) == 0 {
		return
	}

	var flushed int
	for _, d := range deltas {
		if err := w.repo.IncrementTraffic(ctx, d.CampaignID, d.Views, d.Clicks); err != nil {
			// Campaign may have been deleted between buffering and flush
			log.Warn().Err(err).Str("campaign_id", d.CampaignID.String()).Msg("Failed to flush traffic counters")
			continue
		}
		flushed++
	}
	if flushed > 0 {
		log.Debug().Int("campaigns", flushed).Msg("Flushed flash sale traffic counters")
	}
}
