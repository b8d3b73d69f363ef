// Package schema provides declarative form definitions and validation for
// journey stages. A Form accepts raw submitted field values and returns
// cleaned typed values or a list of per-field errors; it carries no runtime
// state, so one Form instance serves every request for its stage.
package schema
