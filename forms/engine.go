package forms

import (
	"context"
	"log/slog"

	"github.com/opencourts/pleaflow-go/contracts"
	"github.com/opencourts/pleaflow-go/schema"
)

// Engine orchestrates one request's worth of work against one named stage.
// It copies the caller's journey snapshot into a private working set and only
// writes back on Save, so Load never mutates durable state behind the
// caller's back.
type Engine struct {
	graph    *Graph
	stage    *StageDef
	index    int
	snapshot contracts.JourneyData
	working  contracts.JourneyData
	logger   *slog.Logger
	messages Messages
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New resolves the requested stage against the graph and prepares a working
// copy of the caller's snapshot. The index selects one item of a repeating
// stage and is ignored (pass -1) otherwise. Unknown stage names fail with
// contracts.ErrStageNotFound.
func New(graph *Graph, snapshot contracts.JourneyData, stageName string, index int, opts ...Option) (*Engine, error) {
	def, err := graph.Lookup(stageName)
	if err != nil {
		return nil, err
	}
	working, err := snapshot.Copy()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		graph:    graph,
		stage:    def,
		index:    index,
		snapshot: snapshot,
		working:  working,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Load handles the render path: dependency gating, repeating-stage resize,
// and assembly of the display context from defaults and stored values.
func (e *Engine) Load(req RequestContext) (contracts.Outcome, error) {
	if isReset(req) {
		e.snapshot.ReplaceWith(contracts.JourneyData{})
		e.working = contracts.JourneyData{}
		e.logger.Info("journey reset requested", "stage", e.stage.Name)
		return contracts.Redirect(e.graph.Start()), nil
	}

	e.ensureBags()

	if e.stage.Name != e.graph.Start() {
		// Past the first stage a language switch would lose entered data, so
		// the flag rides along in the shared journey bag. Setting it is
		// idempotent, which keeps repeated loads identical.
		e.working.Bag(contracts.JourneyBag)["language_switch_disabled"] = true
		e.snapshot.Bag(contracts.JourneyBag)["language_switch_disabled"] = true
	}

	if !e.dependenciesComplete() {
		if e.stage.Name == e.graph.Terminal() {
			e.logger.Warn("terminal stage reached with incomplete dependencies, session data lost",
				"stage", e.stage.Name)
			return contracts.Home(), nil
		}
		e.logger.Info("dependencies incomplete, redirecting to start",
			"stage", e.stage.Name, "start", e.graph.Start())
		return contracts.Redirect(e.graph.Start()), nil
	}

	if e.stage.Repeat != nil {
		e.resizeItems()
		e.clampIndex()
	}

	return contracts.Render(e.renderContext(nil)), nil
}

// Save handles the submission path: validation, split-step resolution,
// non-destructive merge into the stage's bag, the terminal commit hook,
// branching, and the copy-back onto the caller's snapshot.
func (e *Engine) Save(ctx context.Context, raw map[string][]string, req RequestContext, hint string) (contracts.Outcome, error) {
	e.ensureBags()

	if e.stage.Repeat != nil {
		return e.saveRepeating(ctx, raw, hint), nil
	}

	storage := e.working.Bag(e.stage.storageKey())

	if e.stage.Form == nil {
		// Pass-through stage: nothing to validate, commit immediately.
		storage.MarkComplete()
		outcome := e.resolveNext(nil, hint)
		e.writeBack()
		return outcome, nil
	}

	marker := firstValue(raw, contracts.KeySplitForm)
	if e.stage.Split != nil && marker == "" {
		marker = e.stage.Split.Trigger
		raw = withValue(raw, contracts.KeySplitForm, marker)
	}

	result := e.stage.Form.Validate(ctx, raw)

	// Partial clean data is kept even when validation fails; complete is
	// only ever set on the success path.
	storage.Merge(result.Clean)

	if !result.Valid {
		e.writeBack()
		e.logger.Info("stage validation failed",
			"stage", e.stage.Name, "errors", len(result.Errors))
		return contracts.Render(e.renderContext(result)), nil
	}

	if e.stage.Split != nil && marker != "" && marker != contracts.SplitFormLastStep {
		// Intermediate disclosure step: stay on the stage and arm the next
		// submission as the final one.
		storage[contracts.KeySplitForm] = contracts.SplitFormLastStep
		e.writeBack()
		return contracts.Render(e.renderContext(nil)), nil
	}

	if e.stage.Commit != nil {
		if err := e.stage.Commit(ctx, result.Clean, e.working, &e.messages); err != nil {
			e.logger.Error("stage commit failed",
				"stage", e.stage.Name, "error", err)
			e.writeBack()
			return contracts.Render(e.renderContext(nil)), nil
		}
	}

	storage.MarkComplete()
	outcome := e.resolveNext(result.Clean, hint)
	e.writeBack()
	return outcome, nil
}

// ProcessMessages drains accumulated user-facing messages into the sink,
// exactly once per request.
func (e *Engine) ProcessMessages(sink contracts.MessageSink) {
	e.messages.Drain(sink)
}

// Stage returns the resolved stage name.
func (e *Engine) Stage() string {
	return e.stage.Name
}

func (e *Engine) saveRepeating(ctx context.Context, raw map[string][]string, hint string) contracts.Outcome {
	e.resizeItems()
	e.clampIndex()

	storage := e.working.Bag(e.stage.storageKey())
	items := storage.ItemList(e.stage.Repeat.ListKey)
	item := items[e.index]

	result := e.stage.Repeat.ItemForm.Validate(ctx, raw)
	item.Merge(result.Clean)
	storage[e.stage.Repeat.ListKey] = items

	if !result.Valid {
		e.writeBack()
		return contracts.Render(e.renderContext(result))
	}

	item.MarkComplete()
	storage[e.stage.Repeat.ListKey] = items

	if e.index+1 < len(items) {
		e.writeBack()
		return contracts.RedirectIndex(e.stage.Name, e.index+1)
	}

	storage.MarkComplete()
	outcome := e.resolveNext(map[string]any(storage), hint)
	e.writeBack()
	return outcome
}

// resolveNext runs the stage's branching policy, applies skip marking, and
// falls back to declaration order (or the caller's hint) when the policy
// records nothing.
func (e *Engine) resolveNext(clean map[string]any, hint string) contracts.Outcome {
	br := &Branching{index: -1}
	if e.stage.Branch != nil {
		e.stage.Branch(br, clean, e.working)
	}
	for _, name := range br.skip {
		e.working.Bag(name).MarkSkipped()
	}
	if br.set {
		if br.index >= 0 {
			return contracts.RedirectIndex(br.target, br.index)
		}
		return contracts.Redirect(br.target)
	}
	return contracts.Redirect(e.graph.Next(e.stage.Name, hint))
}

// ensureBags guarantees every registered stage has a bag entry before
// traversal, per the journey data invariant.
func (e *Engine) ensureBags() {
	for _, name := range e.graph.Names() {
		e.working.Bag(name)
	}
	e.working.Bag(contracts.JourneyBag)
}

func (e *Engine) dependenciesComplete() bool {
	for _, dep := range e.stage.Dependencies {
		bag := e.working.Bag(dep)
		if def, err := e.graph.Lookup(dep); err == nil && def.Repeat != nil {
			// A skipped repeating stage counts as complete even with no items.
			if bag.Skipped() {
				continue
			}
			if !bag.ItemsComplete(def.Repeat.ListKey) {
				return false
			}
			continue
		}
		if !bag.Complete() {
			return false
		}
	}
	return true
}

// resizeItems reconciles the stored per-item bags with the declared count:
// a shrinking count drops trailing entries, a growing count appends fresh
// empty bags with no split-step progress.
func (e *Engine) resizeItems() {
	rep := e.stage.Repeat
	storage := e.working.Bag(e.stage.storageKey())
	items := storage.ItemList(rep.ListKey)

	count := intFrom(e.working.Bag(rep.CountStage)[rep.CountField])
	if count < 1 {
		count = 1
	}

	if len(items) > count {
		items = items[:count]
		e.logger.Info("repeating stage truncated",
			"stage", e.stage.Name, "count", count)
	}
	for len(items) < count {
		items = append(items, contracts.StageBag{})
	}
	storage[rep.ListKey] = items
}

func (e *Engine) clampIndex() {
	items := e.working.Bag(e.stage.storageKey()).ItemList(e.stage.Repeat.ListKey)
	if e.index < 0 {
		e.index = 0
	}
	if e.index >= len(items) {
		e.index = len(items) - 1
	}
}

// renderContext assembles the display package for the current stage:
// defaults derived from the snapshot, overlaid with stored values, plus any
// validation errors from this request.
func (e *Engine) renderContext(result *schema.Result) map[string]any {
	data := make(map[string]any)
	if e.stage.Defaults != nil {
		for k, v := range e.stage.Defaults(e.working) {
			data[k] = v
		}
	}

	var bag contracts.StageBag
	if e.stage.Repeat != nil {
		items := e.working.Bag(e.stage.storageKey()).ItemList(e.stage.Repeat.ListKey)
		if e.index >= 0 && e.index < len(items) {
			bag = items[e.index]
		}
	} else {
		bag = e.working.Bag(e.stage.storageKey())
	}
	for k, v := range bag {
		data[k] = v
	}

	if e.stage.Split != nil {
		if marker, _ := data[contracts.KeySplitForm].(string); marker == "" {
			data[contracts.KeySplitForm] = e.stage.Split.Trigger
		}
	}

	ctx := map[string]any{
		"stage": e.stage.Name,
		"data":  data,
	}
	if e.stage.Repeat != nil {
		ctx["index"] = e.index
		ctx["count"] = len(e.working.Bag(e.stage.storageKey()).ItemList(e.stage.Repeat.ListKey))
	}
	if result != nil && !result.Valid {
		ctx["errors"] = result.Errors
	}
	return ctx
}

func (e *Engine) writeBack() {
	e.snapshot.ReplaceWith(e.working)
}

func isReset(req RequestContext) bool {
	if req == nil {
		return false
	}
	v, _ := req[KeyReset].(bool)
	return v
}

func firstValue(raw map[string][]string, key string) string {
	if vs, ok := raw[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func withValue(raw map[string][]string, key, value string) map[string][]string {
	out := make(map[string][]string, len(raw)+1)
	for k, v := range raw {
		out[k] = v
	}
	out[key] = []string{value}
	return out
}

func intFrom(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
