package contracts

// Severity classifies a user-facing banner message.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Message is a user-facing banner accumulated by a stage during one request.
type Message struct {
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

// MessageSink receives drained messages, typically the web layer's flash
// message store.
type MessageSink interface {
	AddMessage(severity Severity, text string)
}

// MessageSinkFunc is a function adapter for MessageSink.
type MessageSinkFunc func(severity Severity, text string)

func (f MessageSinkFunc) AddMessage(severity Severity, text string) {
	f(severity, text)
}
