// Package composition turns a reconciled timeline plus the selected
// transition and caption style into a flat, provider-agnostic plan the render
// backend consumes without further style lookups. Unknown transition or
// caption names fail here, before any rendering work begins.
package composition
