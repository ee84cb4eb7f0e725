// Package server exposes the conversion pipeline over HTTP. It wires one
// POST route per conversion pair (plus legacy aliases), the health and
// metrics endpoints, the middleware chain and the retention schedule used
// by the production binary and the tests.
package server
