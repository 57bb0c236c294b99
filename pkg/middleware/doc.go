// Package middleware provides the HTTP request guards that sit in front of
// the API handlers: bearer-token session authentication and Redis-backed
// rate limiting.
package middleware
