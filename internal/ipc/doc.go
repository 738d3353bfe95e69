// Package ipc provides the CLI's client for the daemon's HTTP API.
package ipc
