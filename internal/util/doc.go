// Package util provides the error taxonomy shared by the insurance
// services.
//
// # Error Types
//
// Every failure that reaches the HTTP layer is expressed as an AppError
// carrying a Kind, an explicit status code and an operational flag:
//
//	err := util.NewNotFoundError("quote")
//	err := util.NewInternalError("Failed to fetch products", cause)
//
// Operational errors are expected, client-facing failures. Internal
// errors are faults whose message is never shown to clients outside
// development mode.
//
// Sentinel errors (ErrNotFound, ErrConflict, ...) match AppErrors of the
// corresponding kind through errors.Is.
package util
