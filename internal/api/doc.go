// Package api holds the HTTP handlers of the pricing, enrollment and
// agent sync services and assembles them into a gin engine with the
// shared middleware chain.
//
// Handlers never write error responses. They record the error on the
// gin context and abort; middleware.ErrorHandler renders it.
package api
