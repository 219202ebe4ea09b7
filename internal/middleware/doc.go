// Package middleware provides the gin middleware shared by the insurance
// services.
//
// Middleware never writes error responses. A failing stage records the
// error with c.Error and aborts; ErrorHandler, installed near the top of
// the chain, classifies the last recorded error and writes the single
// JSON error response for the request.
package middleware
