package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for flowsync
var RootCmd = &cobra.Command{
	Use:              "flowsync",
	Short:            "FBP graph synchronization client",
	TraverseChildren: true,
}
