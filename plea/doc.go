// Package plea defines the traffic-offence plea journey: the ordered stage
// graph from URN entry through per-charge pleas and financial disclosure to
// review and submission, together with the branching policy that skips the
// stages a given citizen never needs to see.
package plea
