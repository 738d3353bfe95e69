// Package storyboard defines the artifact envelope passed between pipeline
// stages: script beats, the synthesized narration asset, sourced images, and
// the reconciled timeline. The envelope is serialized to JSON on the job
// record after each stage that changes it.
package storyboard
