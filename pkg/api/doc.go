// Package api wires the HTTP surface of the capsule service: login
// exchange, media uploads and retrieval, and the memories CRUD routes.
package api
