package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/opencourts/pleaflow-go/internal/reliability"
)

// Channel is the subset of the AMQP channel the submitter uses, extracted
// for testability.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSubmitter publishes completed pleas to a durable queue.
type AMQPSubmitter struct {
	channel        Channel
	queue          string
	publishTimeout time.Duration
	policy         reliability.Policy
	logger         *slog.Logger
}

// AMQPOption configures the submitter.
type AMQPOption func(*AMQPSubmitter)

// WithPublishTimeout sets the per-publish timeout.
func WithPublishTimeout(timeout time.Duration) AMQPOption {
	return func(s *AMQPSubmitter) {
		s.publishTimeout = timeout
	}
}

// WithRetryPolicy sets the retry policy for failed publishes.
func WithRetryPolicy(policy reliability.Policy) AMQPOption {
	return func(s *AMQPSubmitter) {
		s.policy = policy
	}
}

// WithSubmitterLogger sets the submitter's logger.
func WithSubmitterLogger(logger *slog.Logger) AMQPOption {
	return func(s *AMQPSubmitter) {
		s.logger = logger
	}
}

// NewAMQPSubmitter creates a submitter publishing to the named queue.
func NewAMQPSubmitter(channel Channel, queue string, opts ...AMQPOption) *AMQPSubmitter {
	s := &AMQPSubmitter{
		channel:        channel,
		queue:          queue,
		publishTimeout: 10 * time.Second,
		policy:         reliability.NewExponentialBackoff(100*time.Millisecond, 2*time.Second, 2.0, 3),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DeclareQueue ensures the submission queue exists; durable, never
// auto-deleted.
func DeclareQueue(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return nil
}

// Submit publishes the submission as a persistent JSON message, retrying
// transient failures. An exhausted retry budget surfaces as an error so the
// review stage keeps the citizen in place.
func (s *AMQPSubmitter) Submit(ctx context.Context, sub *Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to serialize submission: %w", err)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.publishTimeout)
		defer cancel()
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    sub.SubmissionID,
		Timestamp:    sub.SubmittedAt,
		Type:         "PleaSubmission",
		Body:         body,
	}

	err = reliability.Retry(ctx, s.policy, func() error {
		return s.channel.PublishWithContext(ctx, "", s.queue, false, false, msg)
	})
	if err != nil {
		s.logger.Error("plea submission publish failed",
			"submissionId", sub.SubmissionID,
			"urn", sub.URN,
			"queue", s.queue,
			"error", err)
		return fmt.Errorf("failed to publish submission %s: %w", sub.SubmissionID, err)
	}

	s.logger.Info("plea submission published",
		"submissionId", sub.SubmissionID,
		"urn", sub.URN,
		"court", sub.CourtCode,
		"queue", s.queue)
	return nil
}
