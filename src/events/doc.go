// Package events defines the typed channel between the synchronisation core
// and the view layer.
//
// Notifications flow outward: every mutation of the replicated graph is
// reported with the exact entity it affected, so a renderer can patch its
// scene per event instead of diffing the whole graph. Intents flow inward:
// they describe what the user did in the editor (started a link, resolved its
// source, removed a node, renamed a block) and are consumed by the
// controller.
package events
