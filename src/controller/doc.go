// Package controller reconciles what the user does in the editor with the
// protocol-level Flow.
//
// # Half-open edges
//
// The view creates a link as soon as the user starts dragging from a port,
// when only one endpoint is known. The controller keeps such links in two
// waiting maps, keyed by the visual link id: links whose target is known wait
// for their source, and the other way round. Nothing is sent while a link is
// half-open. When the missing end is dropped on a port the link is closed,
// checked and requested from the runtime with graph:addedge. Closing a link
// onto the very port it started from cancels it.
//
// A link that arrives with both ends already set, and that no waiting entry
// knows about, is an existing edge being reconnected and is sent as
// graph:changeedge.
//
// # Acknowledgement
//
// Requested edges stay in a pending list, and in the Flow's cell index, until
// the runtime echoes graph:addedge. Removing a link that was never requested
// sends nothing. Removing a link that was requested but not acknowledged
// cancels it: the runtime is asked to remove it as soon as it confirms it.
//
// # Debounce
//
// Name and code edits are applied locally at once and sent after a quiet
// period, so that only the last of a burst of keystrokes reaches the runtime.
package controller
