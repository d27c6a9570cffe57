// Package store provides persistence for twins, categories, conversations,
// messages, and image processing jobs. The SQLite implementation creates its
// schema automatically; MockStore offers an in-memory double for tests.
package store
