// Package clients is an HTTP client for the credential registry read API.
package clients
