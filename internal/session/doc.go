// Package session manages the per-session working directories that hold
// the uploaded inputs and the generated deck. A session directory lives
// under the store root and is named after its identifier. Sessions expire
// through Sweep or are removed explicitly; finished archives can be
// published to S3 compatible object storage.
package session
