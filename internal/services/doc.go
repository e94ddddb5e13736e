// Package services holds the library and profile use cases behind the HTTP
// handlers and the CLI.
//
// Services depend on the small store interfaces in interfaces.go, which the
// gorm repositories under internal/database satisfy. Failures are returned as
// *Error values whose Kind tells the transport layer how to respond and
// whose Message is safe to show to the user.
package services
