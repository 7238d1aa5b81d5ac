// Package telemetry turns raw battery sensor readings into normalized,
// physically plausible metrics and a smoothed time-to-full estimate.
//
// It contains:
//
//   - Normalizer: unit disambiguation for current (mA vs µA) and capacity
//     (mAh vs µAh) readings reported inconsistently by battery drivers
//   - Estimator: the time-to-full state machine (Idle, Stabilizing,
//     Estimating, Full) with a short current history and debounced recompute
//   - Aggregator: combines one RawSnapshot with the two above into a
//     NormalizedReading, and latches the estimated full capacity
//
// Nothing in this package blocks or performs I/O. Estimator and Aggregator
// are not safe for concurrent use; callers serialize GetReading and Reset.
package telemetry
