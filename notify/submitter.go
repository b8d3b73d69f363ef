package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opencourts/pleaflow-go/contracts"
)

// Charge is one offence and its plea as captured by the journey.
type Charge struct {
	Plea                string `json:"plea"`
	GuiltyExtra         string `json:"guiltyExtra,omitempty"`
	NotGuiltyWhy        string `json:"notGuiltyWhy,omitempty"`
	ComeToCourt         bool   `json:"comeToCourt,omitempty"`
	InterpreterLanguage string `json:"interpreterLanguage,omitempty"`
}

// Submission is the assembled plea handed to the court queue when the
// review stage commits.
type Submission struct {
	SubmissionID string                `json:"submissionId"`
	URN          string                `json:"urn"`
	CourtCode    string                `json:"courtCode"`
	NoticeType   string                `json:"noticeType"`
	Charges      []Charge              `json:"charges"`
	Stages       contracts.JourneyData `json:"stages"`
	SubmittedAt  time.Time             `json:"submittedAt"`
}

// NewSubmission stamps a fresh submission with an ID and timestamp.
func NewSubmission(urn, courtCode, noticeType string, charges []Charge, stages contracts.JourneyData) *Submission {
	return &Submission{
		SubmissionID: uuid.New().String(),
		URN:          urn,
		CourtCode:    courtCode,
		NoticeType:   noticeType,
		Charges:      charges,
		Stages:       stages,
		SubmittedAt:  time.Now(),
	}
}

// Submitter hands a completed plea to the downstream processing pipeline.
// A returned error keeps the citizen on the review stage with a retryable
// message.
type Submitter interface {
	Submit(ctx context.Context, sub *Submission) error
}

// SubmitterFunc is a function adapter for Submitter.
type SubmitterFunc func(ctx context.Context, sub *Submission) error

func (f SubmitterFunc) Submit(ctx context.Context, sub *Submission) error {
	return f(ctx, sub)
}

// LogSubmitter records submissions to the log only, for local development.
type LogSubmitter struct {
	Logger *slog.Logger
}

// Submit implements Submitter.
func (l *LogSubmitter) Submit(ctx context.Context, sub *Submission) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("plea submission accepted",
		"submissionId", sub.SubmissionID,
		"urn", sub.URN,
		"court", sub.CourtCode,
		"charges", len(sub.Charges))
	return nil
}
