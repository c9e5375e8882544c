// Package schedule turns a declarative drying schedule into concrete job
// descriptors.
//
// A Spec holds sequential phases and independent recurring intervals. The
// Compiler lays the phases end to end starting at start_time plus the start
// delay, emits one one-shot job per phase, a final "shutdown" job that resets
// every actuator, and one recurring job per interval rule:
//
//	phases [5m, 5m, 5m] at T  ->  phase-0@T  phase-1@T+5m  phase-2@T+10m  shutdown@T+15m
//
// Job is the persisted unit of work. Its action is a closed tagged variant
// (trigger, reset_all, monitor) so descriptors stay serialisable and
// restart-safe.
package schedule
