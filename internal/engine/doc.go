// Package engine orchestrates stage execution for requirement documents. It
// is the single writer of document status and session state: availability is
// resolved from the workflow package, sessions are reserved before the agent
// spawn is requested, and completions commit the status transition and the
// session clear as one observable unit.
package engine
