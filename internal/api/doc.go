// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It translates HTTP requests into task engine
// operations for the authenticated owner and maps their errors to status
// codes in one place.
package api
