// Package dummy implements a minimal FBP runtime for development and tests.
//
// The runtime accepts websocket connections, using the requested subprotocol
// as the workspace id, and greets every client with the flow of its
// workspace. Graph mutations are validated against the flow and echoed back.
// Network commands run every node once and report their execution. The
// components and the file tree it serves come from a YAML catalogue:
//
//	components:
//	  - name: core/Add
//	    inports: [a, b]
//	    outports: [sum]
//	files:
//	  - name: main.py
//	    path: /main.py
//	    type: file
package dummy
