// Package chat scores replay chat messages for highlight-worthy reactions and
// aggregates scored messages into fixed-width time buckets.
//
// It provides two pieces used by the vod package's analysis pipeline:
//   - ScoreMessage: a pure function that classifies a single message into the
//     fun/hype/ban/sub/donation categories and produces a reaction score.
//   - Accumulator: a single-writer bucket store that deposits scored messages
//     into windowed buckets for later peak detection.
//
// Category keyword patterns and emote-name sets are compiled once, on first
// use, and never mutated; there is no runtime registration of new categories.
package chat
