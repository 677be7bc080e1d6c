// Package resolver owns the terminal side effect of finished processes and
// is the only component allowed to move a process into Completed. Effects
// are applied exactly once, with capped exponential backoff on retryable
// mutator failures; exhausted retries force the process to Failed.
package resolver
