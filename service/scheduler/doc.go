// Package scheduler drives time-based progress. It keeps a min-heap of
// projected completion times across all Running processes, sleeps until the
// nearest one and recomputes actual progress from elapsed wall-clock time on
// each wake, so completions are never missed and nothing busy-polls.
package scheduler
