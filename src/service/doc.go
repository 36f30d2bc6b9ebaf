// Package service exposes a read-only HTTP view of a flowsync session, plus
// a few network controls.
//
//	GET  /session             connection and readiness state
//	GET  /flow                the current flow document
//	GET  /components          the component library
//	GET  /metrics             prometheus metrics
//	POST /network/{command}   start, stop, getstatus or persist
package service
