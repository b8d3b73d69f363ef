package forms

import (
	"context"

	"github.com/opencourts/pleaflow-go/contracts"
	"github.com/opencourts/pleaflow-go/schema"
)

// RequestContext carries free-form request-scoped values into the engine.
// The engine itself only inspects the reset signal; everything else is
// available to stage hooks.
type RequestContext map[string]any

// KeyReset is the request context key signalling that the journey should be
// cleared and restarted.
const KeyReset = "reset"

// SplitOptions configures a split-step stage: one logical stage presented as
// multiple sequential sub-screens via the split_form sentinel field.
type SplitOptions struct {
	// Trigger is the marker the first submission carries when the client
	// sends no split_form value, so a no-JS first screen is recognized as an
	// intermediate step rather than a final one.
	Trigger string
}

// RepeatOptions configures a repeating stage: one sub-form per item, with the
// item count declared by a field of a sibling stage.
type RepeatOptions struct {
	CountStage string
	CountField string
	// ListKey is the bag key holding the ordered list of per-item bags.
	ListKey string
	// ItemForm validates one item's submission.
	ItemForm *schema.Form
}

// Branching records the navigation decision taken by a stage's Branch hook.
type Branching struct {
	target string
	index  int
	skip   []string
	set    bool
}

// Next records a redirect to target and marks every stage in skip as
// complete+skipped before the redirect is returned.
func (b *Branching) Next(target string, skip ...string) {
	b.target = target
	b.index = -1
	b.skip = append(b.skip, skip...)
	b.set = true
}

// NextIndex records a redirect to one item of a repeating stage.
func (b *Branching) NextIndex(target string, index int) {
	b.target = target
	b.index = index
	b.set = true
}

// Skip marks stages as bypassed without changing the redirect target.
func (b *Branching) Skip(stages ...string) {
	b.skip = append(b.skip, stages...)
}

// BranchFunc is a pure branching policy: given the stage's cleaned data and
// the full journey snapshot, it may record an explicit next stage and a skip
// list. When it records nothing, declaration order decides.
type BranchFunc func(b *Branching, clean map[string]any, all contracts.JourneyData)

// CommitFunc runs after successful validation of the stage's final step,
// before the stage is marked complete. Returning an error keeps the user on
// the stage with the reported failure; the review stage uses this to hand the
// assembled plea to the submission collaborator.
type CommitFunc func(ctx context.Context, clean map[string]any, all contracts.JourneyData, msgs *Messages) error

// StageDef is an immutable stage definition, registered once at startup.
type StageDef struct {
	// Name identifies the stage in the graph and in dependency lists.
	Name string
	// StorageKey is the bag the stage reads and writes; it defaults to Name.
	// A logical stage may alias another stage's bag, as used for
	// error-display attachment.
	StorageKey string
	// Dependencies must all be complete before this stage can be reached
	// other than through an explicit redirect.
	Dependencies []string
	// Form is the stage's input schema; nil marks a pure pass-through stage.
	Form *schema.Form
	// Defaults supplies initial render values derived from the journey
	// snapshot, overlaid by whatever the stage bag already holds.
	Defaults func(all contracts.JourneyData) map[string]any
	// Branch encodes the stage's post-validation branching policy.
	Branch BranchFunc
	// Commit is the terminal-action hook, see CommitFunc.
	Commit CommitFunc
	Split  *SplitOptions
	Repeat *RepeatOptions
}

func (s *StageDef) storageKey() string {
	if s.StorageKey != "" {
		return s.StorageKey
	}
	return s.Name
}
