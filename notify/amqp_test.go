package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencourts/pleaflow-go/contracts"
	"github.com/opencourts/pleaflow-go/internal/reliability"
)

// stubChannel records publishes and fails the first failures attempts.
type stubChannel struct {
	failures  int
	published []amqp.Publishing
	keys      []string
}

func (c *stubChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.failures > 0 {
		c.failures--
		return errors.New("connection reset")
	}
	c.published = append(c.published, msg)
	c.keys = append(c.keys, key)
	return nil
}

func fastPolicy() reliability.Policy {
	return &reliability.ExponentialBackoff{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2.0,
		MaxAttempts:     2,
	}
}

func testSubmission() *Submission {
	return NewSubmission("06/AA/1234567/20", "B01", "charge",
		[]Charge{{Plea: "guilty"}},
		contracts.JourneyData{"case": contracts.StageBag{"number_of_charges": 1}})
}

func TestAMQPSubmitter(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes a persistent JSON message to the queue", func(t *testing.T) {
		channel := &stubChannel{}
		submitter := NewAMQPSubmitter(channel, "plea.submissions", WithRetryPolicy(fastPolicy()))

		sub := testSubmission()
		require.NoError(t, submitter.Submit(ctx, sub))

		require.Len(t, channel.published, 1)
		msg := channel.published[0]
		assert.Equal(t, "plea.submissions", channel.keys[0])
		assert.Equal(t, "application/json", msg.ContentType)
		assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)
		assert.Equal(t, sub.SubmissionID, msg.MessageId)
		assert.Equal(t, "PleaSubmission", msg.Type)

		var decoded Submission
		require.NoError(t, json.Unmarshal(msg.Body, &decoded))
		assert.Equal(t, sub.URN, decoded.URN)
		assert.Equal(t, sub.CourtCode, decoded.CourtCode)
		require.Len(t, decoded.Charges, 1)
		assert.Equal(t, "guilty", decoded.Charges[0].Plea)
	})

	t.Run("transient failures are retried", func(t *testing.T) {
		channel := &stubChannel{failures: 2}
		submitter := NewAMQPSubmitter(channel, "plea.submissions", WithRetryPolicy(fastPolicy()))

		require.NoError(t, submitter.Submit(ctx, testSubmission()))
		assert.Len(t, channel.published, 1)
	})

	t.Run("an exhausted retry budget surfaces the error", func(t *testing.T) {
		channel := &stubChannel{failures: 10}
		submitter := NewAMQPSubmitter(channel, "plea.submissions", WithRetryPolicy(fastPolicy()))

		err := submitter.Submit(ctx, testSubmission())
		assert.Error(t, err)
		assert.Empty(t, channel.published)
	})
}

func TestLogSubmitter(t *testing.T) {
	submitter := &LogSubmitter{}
	assert.NoError(t, submitter.Submit(context.Background(), testSubmission()))
}

func TestSubmitterFunc(t *testing.T) {
	called := false
	submitter := SubmitterFunc(func(ctx context.Context, sub *Submission) error {
		called = true
		return nil
	})

	assert.NoError(t, submitter.Submit(context.Background(), testSubmission()))
	assert.True(t, called)
}

func TestNewSubmission(t *testing.T) {
	a := testSubmission()
	b := testSubmission()

	assert.NotEmpty(t, a.SubmissionID)
	assert.NotEqual(t, a.SubmissionID, b.SubmissionID)
	assert.False(t, a.SubmittedAt.IsZero())
}
