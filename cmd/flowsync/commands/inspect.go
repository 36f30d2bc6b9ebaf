package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mosaicnetworks/flowsync/src/common"
	"github.com/mosaicnetworks/flowsync/src/graph"
	"github.com/mosaicnetworks/flowsync/src/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

//NewInspectCmd returns the command that prints stored flows
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [workspace]",
		Short: "List stored workspaces, or print the stored flow of one",
		Long: `Without argument, inspect lists the workspaces with a flow snapshot in the
database and the number of cached components. With a workspace argument, it
prints the last saved flow of that workspace.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: loadConfig,
		RunE:    inspect,
	}
	addCommonFlags(cmd)
	cmd.Flags().Bool("yaml", _config.OutputYAML, "Print the flow as YAML instead of JSON")
	return cmd
}

func inspect(cmd *cobra.Command, args []string) error {
	s, err := store.NewBadgerStore(_config.Flowsync.DatabaseDir, _config.Flowsync.Logger().WithField("component", "store"))
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()

	if len(args) == 0 {
		workspaces, err := s.Workspaces()
		if err != nil {
			return err
		}
		for _, w := range workspaces {
			fmt.Fprintln(out, w)
		}

		lib, err := graph.NewJSONLibrary(_config.Flowsync.DataDir).Library()
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		fmt.Fprintf(out, "%d workspace(s), %d cached component(s)\n", len(workspaces), lib.Len())
		return nil
	}

	doc, err := s.Load(args[0])
	if err != nil {
		if common.IsStore(err, common.KeyNotFound) {
			return fmt.Errorf("no flow stored for workspace %s", args[0])
		}
		return err
	}

	var buf []byte
	if _config.OutputYAML {
		buf, err = yaml.Marshal(doc)
	} else {
		buf, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, string(buf))
	return nil
}
