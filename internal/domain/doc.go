// Package domain contains the core entities of the synthesis service: the
// tracked task record, the request a user submits, and the snapshot the
// external synthesis provider reports. It has no infrastructure dependencies.
package domain
