package sweep

import (
	"context"
	"time"

	"funnelpay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// Worker periodically removes unconfirmed records whose expiry passed
// long enough ago. The reconciler itself never enforces expiry; this
// is the downstream collaborator that acts on expires_at.
type Worker struct {
	store     repositories.SweepStore
	pollEvery time.Duration
	grace     time.Duration
}

func NewWorker(store repositories.SweepStore, pollEvery, grace time.Duration) *Worker {
	if pollEvery <= 0 {
		pollEvery = time.Minute
	}
	if grace < 0 {
		grace = 0
	}
	return &Worker{store: store, pollEvery: pollEvery, grace: grace}
}

func (w *Worker) Run(ctx context.Context) {
	log.Info().Dur("poll_every", w.pollEvery).Msg("sweep worker: started")
	t := time.NewTicker(w.pollEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sweep worker: stopping")
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.grace)
	n, err := w.store.DeleteExpired(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("sweep worker: delete expired failed")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("sweep worker: expired records removed")
	}
}
