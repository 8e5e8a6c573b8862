// Package agent wraps the external agent CLI that performs the actual work
// of each workflow stage. The engine only sees the Launcher interface; the
// CLI implementation shells out with os/exec and runs each invocation in its
// own process group so cancellation reaches forked children.
package agent
