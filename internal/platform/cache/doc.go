// Package cache implements store.ResultCache on Redis. Completed results are
// stored as JSON under "query:<fingerprint>" and expire on their own.
package cache
