// Package protocol implements the wire format of the FBP Network Protocol.
//
// Every message exchanged with a runtime is a JSON object with three keys:
//
//	{"protocol": "graph", "command": "addnode", "payload": {...}}
//
// The protocol field selects a subprotocol (graph, network, component, trace,
// fileexplorer, runtime, flow) and the command field selects an operation
// within it. Payloads are arbitrary JSON objects; an absent payload decodes to
// an empty object.
//
// # Decoding
//
// Decode fails with ErrMalformedMessage when the input is not valid JSON or
// when the protocol or command keys are missing. Callers are expected to log
// and drop such messages, never to close the channel because of them.
//
// Typed payloads are obtained with DecodePayload, which maps the generic
// payload object onto a struct using its json tags. Numeric and boolean values
// are converted loosely because runtimes are not consistent about sending
// numbers as strings.
package protocol
