// Package daemon hosts the long-running loom process: it owns the document
// store and workflow engine, enforces single-instance execution via a lock
// file, and exposes the operations the IPC server serves.
package daemon
