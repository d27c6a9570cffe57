// Package query orchestrates conversation fetches: caching by key,
// de-duplication of concurrent identical requests, explicit invalidation,
// and client-side page accumulation for the conversation list.
package query
