package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Barunkrsingh/chat-application/internal/claim"
	"github.com/Barunkrsingh/chat-application/internal/metrics"
	"github.com/Barunkrsingh/chat-application/internal/models"
	"github.com/Barunkrsingh/chat-application/internal/provider"
)

// ErrUnsupportedJobKind is the terminal outcome for jobs no provider serves.
var ErrUnsupportedJobKind = errors.New("unsupported job kind")

// Replies written when the provider gives nothing usable.
const (
	ReplyEmpty       = "I'm sorry, I don't have a response for that"
	ReplyFailed      = "An error occurred while processing your request with the AI assistant."
	ReplyUnsupported = "Image generation is not supported by the AI assistant. Please use a dedicated image generation service."
)

// Outcome describes how a job finished.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeEmpty         Outcome = "empty"
	OutcomeProviderError Outcome = "provider_error"
	OutcomeUnsupported   Outcome = "unsupported"
	OutcomeDuplicate     Outcome = "duplicate"
)

// Appender is the part of the message store the worker writes through.
type Appender interface {
	Append(ctx context.Context, conversationID, sender, content string, kind models.MessageKind) (*models.Message, error)
}

// WorkerConfig tunes a Worker.
type WorkerConfig struct {
	Timeout     time.Duration // bound on one provider call
	Concurrency int           // jobs handled at once by Run
	ClaimTTL    time.Duration // how long a handled job ID is remembered
}

// Worker answers dispatched jobs with exactly one AI-authored message each.
type Worker struct {
	store  Appender
	gen    provider.Generator
	claims claim.Store
	cfg    WorkerConfig
	logger zerolog.Logger
}

// NewWorker creates a Worker.
func NewWorker(store Appender, gen provider.Generator, claims claim.Store, cfg WorkerConfig, logger zerolog.Logger) *Worker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 24 * time.Hour
	}
	return &Worker{
		store:  store,
		gen:    gen,
		claims: claims,
		cfg:    cfg,
		logger: logger.With().Str("component", "ai_worker").Logger(),
	}
}

// Run consumes jobs until src is exhausted, then waits for in-flight jobs.
func (w *Worker) Run(ctx context.Context, src Source) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)

	for {
		job, ok := src.Consume(ctx)
		if !ok {
			break
		}
		g.Go(func() error {
			w.Handle(gctx, job)
			return nil
		})
	}

	return g.Wait()
}

// Handle runs one job. A job ID already claimed is skipped, so a job observed
// twice still yields one reply. Provider failures become reply text; nothing
// is returned to the original sender and nothing is retried.
func (w *Worker) Handle(ctx context.Context, job Job) Outcome {
	log := w.logger.With().
		Str("job_id", job.ID).
		Str("conversation_id", job.ConversationID).
		Str("job_kind", job.Kind.String()).
		Logger()

	first, err := w.claims.Claim(ctx, "job:"+job.ID, w.cfg.ClaimTTL)
	if err != nil {
		// Without the claim store we cannot dedupe; answering beats silence.
		log.Error().Err(err).Msg("job claim failed, handling anyway")
	} else if !first {
		metrics.JobsSkipped.Inc()
		log.Info().Msg("job already handled, skipping")
		return OutcomeDuplicate
	}

	content, outcome := w.generate(ctx, job, log)

	// The reply is written even if ctx was cancelled mid-generation.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	msg, err := w.store.Append(writeCtx, job.ConversationID, models.AISender, content, models.KindText)
	if err != nil {
		log.Error().Err(err).Str("outcome", string(outcome)).Msg("failed to store AI reply")
		return outcome
	}

	metrics.JobReplies.WithLabelValues(string(outcome)).Inc()
	log.Info().
		Str("message_id", msg.ID).
		Str("outcome", string(outcome)).
		Msg("AI reply stored")
	return outcome
}

func (w *Worker) generate(ctx context.Context, job Job, log zerolog.Logger) (string, Outcome) {
	switch job.Kind {
	case JobTextCompletion:
		cctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()

		start := time.Now()
		text, err := w.gen.Complete(cctx, job.Content)
		metrics.ObserveSince(metrics.ProviderLatency, start)
		if err != nil {
			log.Error().Err(err).Dur("latency", time.Since(start)).Msg("generation failed")
			return ReplyFailed, OutcomeProviderError
		}
		if strings.TrimSpace(text) == "" {
			return ReplyEmpty, OutcomeEmpty
		}
		return text, OutcomeSuccess

	default:
		log.Warn().Err(ErrUnsupportedJobKind).Msg("job kind has no provider")
		return ReplyUnsupported, OutcomeUnsupported
	}
}
