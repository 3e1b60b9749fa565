// Package generation tracks concurrent song-generation jobs against an
// external provider.
//
// A Manager admits jobs up to a fixed ceiling, starts each one with the
// Provider on its own goroutine and polls it until the provider reports a
// terminal phase or the job is cancelled. Every poll tick re-validates the job
// under the manager lock after the provider round trip, so a late outcome for
// a cancelled or removed job is discarded instead of applied.
//
// Finished jobs stay visible for a short grace period before they are removed
// and their slot is freed. Successful jobs are delivered once through the
// OnComplete callback and once through the CompletionQueue.
package generation
