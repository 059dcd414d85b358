// Package store provides SQLite-backed durable storage for the
// validator's prediction ingestion and scoring state.
//
// Fixed tables (created idempotently at Open):
//   - properties: immutable listing snapshots
//   - sales: observed sale outcomes, written by the external ingester
//   - scored_predictions: predictions reconciled against realized sales
//   - miner_scores: one row per miner, the input to weight allocation
//   - active_miners: miners seen in the most recent ingestion cycle
//   - website_comms: outbound prediction feed for the website
//   - synapse_ids: offered-listing sets keyed by outbound request id
//
// Per-miner prediction tables are created lazily the first time a
// miner's hotkey is seen. Table names are derived from the hotkey and
// validated against an alphanumeric allow-list; see MinerTableName.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
