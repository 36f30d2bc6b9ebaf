// Package flowsync assembles a headless flowsync client.
//
// A Flowsync instance connects to an FBP runtime over a websocket, keeps a
// local replica of the flow of one workspace, and exposes it over HTTP:
//
//	c := config.NewDefaultConfig()
//	c.RuntimeAddr = "ws://localhost:3569"
//
//	fs := flowsync.NewFlowsync(c)
//	if err := fs.Init(); err != nil {
//		return err
//	}
//	defer fs.Shutdown()
//
//	return fs.Run(ctx)
//
// Editors embedding the client subscribe to Bus for notifications and feed
// user intents through Manager.Intent.
package flowsync
