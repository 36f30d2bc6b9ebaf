package graph

import "errors"

var (
	// ErrInvalidEdge is returned when an edge is built from a payload that
	// carries neither a source nor a target.
	ErrInvalidEdge = errors.New("edge has neither source nor target")

	// ErrDanglingReference is returned by Flow.Validate when a closed edge
	// references a node or port that the flow does not contain.
	ErrDanglingReference = errors.New("dangling reference")
)
