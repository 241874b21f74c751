// Package pipeline implements the component installation pipeline: the
// Validator that turns a fetched snapshot into an install plan, the Placer
// that executes a plan as a near-atomic unit, and the Installer that
// sequences resolve, fetch, validate, place, and record as one
// transaction-like operation with rollback on failure.
package pipeline
