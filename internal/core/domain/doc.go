// Package domain defines the shared error model for blobtier.
//
// Every failure surfaced by the cache carries a DomainError with a stable
// code so that callers (and the HTTP layer) can classify it without string
// matching:
//
//   - BT-BLOB-*: key lookups (not found)
//   - BT-DISK-*: disk tier I/O
//   - BT-CODEC-*: payload encode/decode and variant transforms
//   - BT-ARG-*: invalid caller input
//   - BT-AUTH-*: admin token and rate limit rejections
//   - BT-SYS-*: lifecycle and internal failures
//
// errors.Is matches on the code, so a wrapped cause never hides the kind.
package domain
