// Package forms provides the multi-stage form workflow engine that drives a
// citizen journey through a graph of named stages.
//
// A stage declares its form schema, its prerequisite stages, and a branching
// hook that decides where to go next based on the cleaned data and the full
// journey snapshot. The engine orchestrates one request's worth of work
// against one stage: it checks dependency completeness, validates submitted
// values, merges cleaned data into the session-backed journey data, and
// returns a navigation outcome (render with errors, or redirect).
//
// Key behaviors:
//   - Dependency gating with redirect to the start stage (or home for the
//     terminal stage, treated as session-timeout recovery)
//   - Stage skipping: branching can mark stages complete+skipped in bulk
//   - Split-step sub-flows: one logical stage rendered as sequential
//     sub-screens via the split_form sentinel
//   - Repeating stages: one sub-form per item, sized from a sibling stage's
//     declared count, resized defensively on re-entry
//   - Non-destructive partial updates into each stage's bag
//
// Basic usage:
//
//	graph := forms.NewGraph()
//	graph.Register(&forms.StageDef{Name: "case", Form: caseForm, Branch: caseBranch})
//	graph.Register(&forms.StageDef{Name: "review", Dependencies: []string{"case"}})
//
//	engine, err := forms.New(graph, journeyData, "case", -1)
//	outcome, err := engine.Load(req)         // GET
//	outcome, err := engine.Save(ctx, values, req, "") // POST
package forms
