// Package prd models requirement documents and their SQLite persistence.
// Document status is the single authority on what stage a document is in;
// all writes funnel through the workflow engine or the administrative
// override exposed by the daemon.
package prd
