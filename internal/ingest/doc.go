// Package ingest validates and persists inbound miner prediction
// batches.
//
// Each response is checked against the synapse record written when the
// request went out: predictions for listings that were never offered
// are rejected, as are predictions missing a price or date. Valid
// predictions are bucketed by their force-update flag and written to
// the miner's prediction table under INSERT OR IGNORE or INSERT OR
// REPLACE semantics respectively. Once a batch has been processed,
// every synapse record it referenced is deleted so request ids cannot
// be replayed.
package ingest
