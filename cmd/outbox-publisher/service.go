package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/pkg/config"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/metrics"
	"github.com/angelmondragon/univend-backend/pkg/outbox/registry"
)

const (
	fallbackBatchSize   = 50
	fallbackPoll        = 500 * time.Millisecond
	fallbackMaxAttempts = 10
	publishTimeout      = 15 * time.Second
	idleCeiling         = 10 * time.Second
	idleJitter          = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type topicSource interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type topicPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishAck
}

type publishAck interface {
	Get(context.Context) (string, error)
}

type publisherFor func(topic string) topicPublisher

// RelayParams configures a Relay.
type RelayParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          txRunner
	PubSub      topicSource
	Outbox      outboxStore
	DeadLetters deadLetterStore
	Registry    eventResolver
	Publishers  publisherFor
	Metrics     *metrics.OutboxMetrics
}

// Relay drains committed outbox rows into Pub/Sub. Each batch is claimed
// inside one transaction with SKIP LOCKED so several relays can run side by side.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	pubsub      topicSource
	outbox      outboxStore
	deadLetters deadLetterStore
	registry    eventResolver
	publishers  publisherFor
	metrics     *metrics.OutboxMetrics

	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Config == nil:
		return nil, errors.New("config is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case p.Outbox == nil:
		return nil, errors.New("outbox repository is required")
	case p.DeadLetters == nil:
		return nil, errors.New("dlq repository is required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	publishers := p.Publishers
	if publishers == nil {
		publishers = func(topic string) topicPublisher {
			if pub := p.PubSub.Publisher(topic); pub != nil {
				return gcpTopic{pub}
			}
			return nil
		}
	}

	cfg := p.Config.Outbox
	r := &Relay{
		logg:        p.Logger,
		db:          p.DB,
		pubsub:      p.PubSub,
		outbox:      p.Outbox,
		deadLetters: p.DeadLetters,
		registry:    p.Registry,
		publishers:  publishers,
		metrics:     p.Metrics,
		batchSize:   positiveOr(cfg.BatchSize, fallbackBatchSize),
		maxAttempts: positiveOr(cfg.MaxAttempts, fallbackMaxAttempts),
		poll:        fallbackPoll,
	}
	if cfg.PollIntervalMS > 0 {
		r.poll = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	return r, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run polls until ctx is cancelled. A full batch is followed immediately by the
// next one; idle polls and batch errors back off exponentially up to idleCeiling.
func (r *Relay) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": r.db.Ping, "pubsub": r.pubsub.Ping} {
		if err := ping(ctx); err != nil {
			r.logg.Error(ctx, name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	idle := r.idleBackoff()
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox relay context canceled")
			return err
		}

		claimed, err := r.drain(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox relay batch failed", err)
		case claimed > 0:
			idle = r.idleBackoff()
			continue
		}

		wait, _ := idle.Next()
		if err := pause(ctx, wait); err != nil {
			return err
		}
	}
}

func (r *Relay) idleBackoff() retry.Backoff {
	return retry.WithCappedDuration(idleCeiling, retry.WithJitter(idleJitter, retry.NewExponential(r.poll)))
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// drain claims one batch and settles every row in it. It returns how many rows
// were claimed. Publish failures settle the row and never abort the batch.
func (r *Relay) drain(ctx context.Context) (int, error) {
	claimed := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.outbox.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		claimed = len(rows)
		for _, row := range rows {
			if err := r.relayOne(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

func (r *Relay) relayOne(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	fields := rowFields(row)

	resolved, err := r.registry.Resolve(row)
	if err != nil {
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err, fields)
	}
	fields["topic"] = resolved.Descriptor.Topic
	fields["event_id"] = resolved.Envelope.EventID

	pubErr := r.publish(ctx, row, resolved)
	if pubErr == nil {
		if err := r.outbox.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.metrics.Inc(string(row.EventType), metrics.OutboxPublished)
		r.logg.Info(r.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	var nonRetryable registry.NonRetryableError
	if errors.As(pubErr, &nonRetryable) {
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, pubErr, fields)
	}

	attempt := row.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= r.maxAttempts {
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", pubErr), fields)
	}

	warnCtx := r.logg.WithField(r.logg.WithFields(ctx, fields), "error", pubErr.Error())
	r.logg.Warn(warnCtx, "outbox publish failed, will retry")
	r.metrics.Inc(string(row.EventType), metrics.OutboxRetried)
	if err := r.outbox.MarkFailedTx(tx, row.ID, pubErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", row.ID, err)
	}
	return nil
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	warnCtx := r.logg.WithField(r.logg.WithFields(ctx, fields), "error", cause.Error())
	r.logg.Warn(warnCtx, "outbox event dead-lettered")

	message := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &message,
		AttemptCount:  row.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := r.deadLetters.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := r.outbox.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	r.metrics.Inc(string(row.EventType), metrics.OutboxDeadLettered)
	return nil
}

// publish sends the stored envelope unchanged; routing metadata rides in the
// message attributes so subscribers can filter without decoding.
func (r *Relay) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := r.publishers(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ack := pub.Publish(ctx, &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID,
			"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if ack == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := ack.Get(ctx)
	return err
}

func rowFields(row models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID,
		"attempt_count":  row.AttemptCount,
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

type gcpTopic struct {
	pub *gcppubsub.Publisher
}

func (t gcpTopic) Publish(ctx context.Context, msg *gcppubsub.Message) publishAck {
	return t.pub.Publish(ctx, msg)
}
