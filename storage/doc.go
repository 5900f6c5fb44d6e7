// Package storage resolves object keys written by compute into
// time-limited URLs clients can download from.
//
// Backends register themselves by import:
//
//   - storage/s3: S3 (or an S3-compatible endpoint) presigned GET URLs
//   - storage/local: HMAC-signed URLs under a local base URL, for development
//
// Configuration:
//
//	storage:
//	  provider: s3
//	  bucket: vidpipe-media
//	  region: us-east-1
package storage
