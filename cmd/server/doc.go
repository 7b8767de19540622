// Package main is the entry point for the ateles view server.
//
// The server executes untrusted JavaScript snippets and named functions
// against JSON documents. Each connection gets its own isolated execution
// context pre-loaded with the map/reduce bootstrap library.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -host 127.0.0.1 -port 8444
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
