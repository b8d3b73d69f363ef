package forms

import "github.com/opencourts/pleaflow-go/contracts"

// Messages accumulates user-facing banners during one engine invocation.
type Messages struct {
	list []contracts.Message
}

// Add appends a message.
func (m *Messages) Add(severity contracts.Severity, text string) {
	m.list = append(m.list, contracts.Message{Severity: severity, Text: text})
}

// Drain sends every accumulated message to the sink and clears the buffer,
// so a second call delivers nothing.
func (m *Messages) Drain(sink contracts.MessageSink) {
	for _, msg := range m.list {
		sink.AddMessage(msg.Severity, msg.Text)
	}
	m.list = nil
}
