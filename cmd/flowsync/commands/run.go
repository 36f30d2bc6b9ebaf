package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/flowsync/src/flowsync"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that connects flowsync to a runtime
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Connect to a runtime and keep the flow of a workspace in sync",
		PreRunE: loadConfig,
		RunE:    runFlowsync,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runFlowsync(cmd *cobra.Command, args []string) error {
	engine := flowsync.NewFlowsync(&_config.Flowsync)

	if err := engine.Init(); err != nil {
		_config.Flowsync.Logger().Error("Cannot initialize engine:", err)
		return err
	}
	defer engine.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return engine.Run(ctx)
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	addCommonFlags(cmd)

	// Runtime
	cmd.Flags().StringP("runtime", "r", _config.Flowsync.RuntimeAddr, "Websocket URL of the FBP runtime")
	cmd.Flags().StringP("workspace", "w", _config.Flowsync.Workspace, "Workspace id, random if empty")
	cmd.Flags().Int("max-reconnect", _config.Flowsync.MaxReconnectAttempts, "Reconnection attempts after the connection was lost")
	cmd.Flags().Duration("reconnect-interval", _config.Flowsync.ReconnectInterval, "Wait between reconnection attempts")
	cmd.Flags().Duration("handshake-timeout", _config.Flowsync.HandshakeTimeout, "Websocket handshake timeout")
	cmd.Flags().Int("send-queue", _config.Flowsync.SendQueueSize, "Messages held while disconnected")

	// Editing
	cmd.Flags().Duration("name-debounce", _config.Flowsync.NameDebounce, "Quiet period before a rename is sent")
	cmd.Flags().Duration("code-debounce", _config.Flowsync.CodeDebounce, "Quiet period before a code edit is sent")

	// Service
	cmd.Flags().StringP("service-listen", "s", _config.Flowsync.ServiceAddr, "Listen IP:Port for HTTP service")
	cmd.Flags().Bool("no-service", _config.Flowsync.NoService, "Disable HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Flowsync.Store, "Use badgerDB instead of in-mem DB")
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.Flowsync.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Flowsync.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.Flowsync.LogFile, "Also write logs to this file")
	cmd.Flags().String("db", _config.Flowsync.DatabaseDir, "Database directory")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Flowsync.SetDataDir(_config.Flowsync.DataDir)

	logFields := logrus.Fields{
		"flowsync.DataDir":              _config.Flowsync.DataDir,
		"flowsync.LogLevel":             _config.Flowsync.LogLevel,
		"flowsync.RuntimeAddr":          _config.Flowsync.RuntimeAddr,
		"flowsync.Workspace":            _config.Flowsync.WorkspaceID(),
		"flowsync.ServiceAddr":          _config.Flowsync.ServiceAddr,
		"flowsync.NoService":            _config.Flowsync.NoService,
		"flowsync.Store":                _config.Flowsync.Store,
		"flowsync.MaxReconnectAttempts": _config.Flowsync.MaxReconnectAttempts,
		"flowsync.ReconnectInterval":    _config.Flowsync.ReconnectInterval,
		"flowsync.HandshakeTimeout":     _config.Flowsync.HandshakeTimeout,
		"flowsync.SendQueueSize":        _config.Flowsync.SendQueueSize,
		"flowsync.NameDebounce":         _config.Flowsync.NameDebounce,
		"flowsync.CodeDebounce":         _config.Flowsync.CodeDebounce,
	}

	if _config.Flowsync.Store {
		logFields["flowsync.DatabaseDir"] = _config.Flowsync.DatabaseDir
	}

	_config.Flowsync.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/flowsync.toml (.json, .yaml also work)
	viper.SetConfigName("flowsync")               // name of config file (without extension)
	viper.AddConfigPath(_config.Flowsync.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Flowsync.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Flowsync.Logger().Debugf("No config file found in: %s", _config.Flowsync.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
