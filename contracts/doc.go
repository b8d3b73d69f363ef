// Package contracts defines the core data types shared across the plea
// journey engine: stage bags, journey data snapshots, navigation outcomes,
// user-facing messages, and the errors the engine surfaces to callers.
package contracts
