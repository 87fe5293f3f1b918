// Package blob uploads generated audio to object storage and returns a URL
// for it. Two backends exist: the Vercel Blob HTTP API and Google Cloud
// Storage. Neither retries internally.
package blob
