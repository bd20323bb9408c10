// Package syntax provides types for gitsocial identifiers and other protocol-level string formats.
//
// These are simple string alias types for parsing and building post addresses, repository
// locators, and reserved pointer names, not routines for resolution against an actual
// repository.
package syntax
