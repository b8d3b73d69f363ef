package contracts

// OutcomeKind discriminates the navigation directive produced by one engine
// invocation.
type OutcomeKind string

const (
	// OutcomeRender means: show the current stage with the supplied form
	// state and any validation errors.
	OutcomeRender OutcomeKind = "render"
	// OutcomeRedirect means: send the user to another stage.
	OutcomeRedirect OutcomeKind = "redirect"
	// OutcomeHome means: send the user to the service root. Only produced
	// when the terminal stage's dependencies are missing, which indicates a
	// lost session rather than bad input.
	OutcomeHome OutcomeKind = "home"
)

// Outcome is the transient navigation directive consumed by the HTTP layer.
// It is produced once per engine invocation and never persisted.
type Outcome struct {
	Kind    OutcomeKind
	Stage   string
	Index   int // sub-index for repeating stages, -1 when not applicable
	Context map[string]any
}

// Render builds a render outcome carrying the display context for the
// current stage.
func Render(ctx map[string]any) Outcome {
	return Outcome{Kind: OutcomeRender, Index: -1, Context: ctx}
}

// Redirect builds a redirect outcome targeting another stage.
func Redirect(stage string) Outcome {
	return Outcome{Kind: OutcomeRedirect, Stage: stage, Index: -1}
}

// RedirectIndex builds a redirect outcome targeting one item of a repeating
// stage.
func RedirectIndex(stage string, index int) Outcome {
	return Outcome{Kind: OutcomeRedirect, Stage: stage, Index: index}
}

// Home builds a redirect-to-root outcome.
func Home() Outcome {
	return Outcome{Kind: OutcomeHome, Index: -1}
}

// IsRedirect reports whether the outcome navigates away from the current
// stage.
func (o Outcome) IsRedirect() bool {
	return o.Kind == OutcomeRedirect || o.Kind == OutcomeHome
}
