// Package state tracks which videos each account has already published.
//
// Every account has one JSON file named uploaded-<username>.json under the
// configured state directory. It records:
//   - The set of published object keys (append-only, used for idempotence)
//   - The most recent upload with its media id and timestamp
//
// State files are saved atomically to prevent corruption and include
// versioning for future compatibility.
package state
