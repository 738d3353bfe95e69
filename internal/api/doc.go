// Package api exposes job operations as transport-friendly services and DTOs.
// The HTTP daemon and the CLI both route through this layer so validation and
// snapshot shaping happen in exactly one place.
package api
