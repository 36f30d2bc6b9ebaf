// Package graph holds the client-side replica of an FBP graph.
//
// A Flow owns every Node, Edge and Group of one graph. Entities never point at
// each other directly: a Port records the ids of the edges that terminate on
// it, an Edge records the (node, port) pairs of its endpoints, and a Node
// records the name of the Component it was instantiated from. Every such
// reference is resolved through the owning Flow (or the component Library),
// which keeps the structure acyclic and trivially serialisable.
//
// # Edges
//
// An edge is half-open when only one of its endpoints is known, and closed
// when both are. Half-open edges only exist transiently, while the user is
// dragging a link in the editor; they are tracked by the synchronisation
// controller and never stored in Flow.Edges. The Flow keeps a separate cell
// index, keyed by edge id, which covers both confirmed edges and edges that
// were sent to the runtime but not yet acknowledged.
//
// # Mutations
//
// All mutation methods are idempotent with respect to redelivery: adding an
// entity whose id is already present is a no-op, and removing or changing an
// absent entity reports false instead of failing. Lookups compare ids, never
// object identity.
package graph
