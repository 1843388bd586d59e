// Package errors provides classified errors for pageboot.
//
// A ClassifiedError carries a category (config, network, auth, dom, storage...),
// a severity, a retry strategy and a free-form context map. Errors are built
// with the fluent ErrorBuilder:
//
//	err := errors.AuthError("content fetch redirected").
//		WithContext("location", loc).
//		Build()
//
// The HTTP adapter maps categories onto response status codes for the edge
// server.
package errors
