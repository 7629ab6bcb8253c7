// Package auth provides credential hashing for Haven Core.
//
// The hub stores a single installation password, hashed with Argon2id
// and persisted as a setting. This package owns the hashing and
// verification; it deliberately carries no session or token machinery.
package auth
