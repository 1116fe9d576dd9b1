// Package httpserver serves the registry read API, signed document content
// and the health endpoints used by load balancers.
package httpserver
