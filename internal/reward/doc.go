// Package reward computes a deterministic scalar quality score for a rewrite
// from human feedback text and embedding similarity. The score is a fixed
// additive heuristic, not a trained policy, and is unbounded in both
// directions.
package reward
