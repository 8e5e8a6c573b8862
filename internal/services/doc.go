// Package services defines the shared error taxonomy and context carriage
// used across the workflow engine boundary. Every failure the engine reports
// is tagged with one of the sentinel markers here so callers can classify it
// with errors.Is instead of string matching.
package services
