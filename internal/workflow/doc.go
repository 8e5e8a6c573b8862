// Package workflow declares the static stage catalog, the status transition
// table, and the pure availability resolver that together define the PRD
// development lifecycle. Nothing here performs I/O or holds mutable state;
// the engine package owns all writes.
package workflow
