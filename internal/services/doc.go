// Package services holds cross-cutting helpers shared by the pipeline stages:
// the sentinel error taxonomy used to classify stage failures, message
// wrapping that keeps stage/operation context attached, and context keys for
// correlating log lines with jobs, stages, and requests.
package services
