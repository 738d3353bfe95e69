// Package workflow drives jobs through the generation pipeline. A pool of
// workers claims jobs at any stage-start status and runs the remaining stages
// in sequence, persisting the job after every transition so a restart can
// resume from the last stable boundary. Cancellation is cooperative: the flag
// is checked between stages and watched during them, and the output of a
// stage that was cancelled mid-flight is discarded rather than persisted.
package workflow
