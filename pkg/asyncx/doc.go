// Package asyncx provides small concurrency helpers: a Future type for
// awaiting a single async result, and fire-and-forget dispatch for work
// whose outcome must never block or fail the caller (background email
// dispatch being the canonical use here).
package asyncx
