// Package config defines the configuration for a flowsync client.
//
// Regardless of how flowsync is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object
// defined in this package to store and forward configuration options. On top
// of these options, flowsync relies on a data directory, defined by
// Config.DataDir, where it keeps:
//
//	flowsync.toml    // (optional) configuration file read by the CLI.
//	components.json  // the component library last received from the runtime.
//	badger_db/       // (with --store) snapshots of the flow of each workspace.
package config
