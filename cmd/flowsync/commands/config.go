package commands

import (
	"github.com/mosaicnetworks/flowsync/src/config"
)

//CLIConfig contains configuration for the flowsync commands
type CLIConfig struct {
	Flowsync   config.Config `mapstructure:",squash"`
	DummyAddr  string        `mapstructure:"listen"`
	Catalogue  string        `mapstructure:"catalogue"`
	OutputYAML bool          `mapstructure:"yaml"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Flowsync:  *config.NewDefaultConfig(),
		DummyAddr: "127.0.0.1:3569",
	}
}
