// Package ipc carries the JSON-RPC control plane between the loom CLI and
// the daemon over a Unix domain socket.
package ipc
