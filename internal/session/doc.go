// Package session tracks the single in-flight execution per document. The
// tracker is an injected store owned by the engine, not a module-level
// singleton, so tests construct isolated instances freely.
package session
