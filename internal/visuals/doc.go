// Package visuals sources the image sequence for a job. Network providers
// (Pexels first, then Unsplash) are tried per keyword with content-hash
// deduplication inside a job; the stored-asset mode bypasses the network
// entirely and serves from a local pool.
package visuals
