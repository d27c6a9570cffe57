// Package server exposes the JSON API for conversations, messages, and twins.
// The wire shapes line up with the conversations client package so the same
// binary can serve and consume them. The image-processing endpoint accepts a
// request, returns 202 with a job id, and lets the twins service finish the
// work asynchronously.
package server
