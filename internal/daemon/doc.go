// Package daemon hosts the long-running generation service: it enforces
// single-instance execution with a lock file, runs the workflow manager, and
// serves the polling HTTP API.
package daemon
