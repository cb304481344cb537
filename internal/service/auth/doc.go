// Package auth verifies bearer tokens and resolves them to the owner identity
// used to scope task records. It does not issue credentials.
package auth
