// Package progression diffs trait snapshots into per-trait deltas and the
// milestone and unlock events a change produces, and derives growth trends
// and naive milestone predictions from those deltas.
//
// Milestones fire when a value crosses a threshold upward
// (previous < threshold <= current). Unlocks fire only when the current value
// is exactly 50, 75 or 100, regardless of direction; the two rules are kept
// distinct on purpose and callers should not expect them to agree.
package progression
