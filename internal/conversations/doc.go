// Package conversations is the data access layer for the conversation API.
//
// Read paths collapse all expected failures (missing base URL, network
// errors, non-2xx responses) into nil/empty results with a typed Status, so
// callers can treat "no data" and "error" identically while logging keeps
// the distinction.
package conversations
