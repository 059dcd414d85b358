// Package weights converts accumulated miner performance into the
// normalized weight vector submitted to the network registry.
//
// Raw lifetime scores are adjusted by three independent penalties
// (market diversity, staleness, low volume), ranked, partitioned into
// top/mid/tail tiers holding fixed aggregate shares of 0.7/0.2/0.1,
// quadratically scaled within each tier, and renormalized to sum to
// 1.0. Submission is gated on the validator's own stake.
package weights
