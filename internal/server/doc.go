// Package server provides the HTTP surface of pulsecheck.
//
// Requests are routed on the path with leading and trailing slashes removed,
// then on the verb:
//
//   - /user: POST register, GET profile, PUT update, DELETE account
//   - /token: POST login, GET lookup, PUT extend, DELETE logout
//   - /check: POST create, GET read, PUT update, DELETE remove
//
// Authenticated routes read the bearer token from the "token" header. Error
// bodies are {"error": "..."}; success bodies are the resource or
// {"message": "..."}. Unknown paths answer 404 and unknown verbs 405.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
