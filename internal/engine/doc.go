// Package engine is the coordination core: it turns raw state (lock table,
// dependency graph, the caller's known revision) into a single actionable
// directive per request.
//
// Two operations exist. CheckStatus is the pure read path: it reports
// per-file lock visibility (DIRECT for the file itself, NEIGHBOR for
// graph-adjacent files), revision staleness, and an aggregate status, without
// ever mutating state. PostStatus is the write path: it performs atomic
// acquire/upgrade/release across a file set and, on release, computes which
// dependent files were blocked solely by the released locks.
//
// # Directive resolution
//
// Every outcome, including backend unreachability, resolves into a directive
// at this boundary — callers never see a raw store error. Precedence, first
// match wins: backend unreachable (STOP for writes, SWITCH_TASK for reads),
// stale caller revision (PULL), release without a pushed revision (PUSH),
// lock conflicts (WAIT for writes, SWITCH_TASK for reads), then PROCEED.
// Staleness is checked before lock conflicts because an out-of-date caller's
// lock view cannot be trusted.
package engine
