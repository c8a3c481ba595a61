// Package model defines the shared data types for relayfetch.
// It contains the fetch outcome structures passed between the batch
// fetcher, the report writers, and the history database, keeping those
// packages decoupled from each other.
package model
