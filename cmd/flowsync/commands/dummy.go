package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mosaicnetworks/flowsync/src/dummy"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

//NewDummyCmd returns the command that starts a dummy FBP runtime
func NewDummyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dummy",
		Short:   "Run a dummy FBP runtime for development",
		PreRunE: loadConfig,
		RunE:    runDummy,
	}
	AddDummyFlags(cmd)
	return cmd
}

//AddDummyFlags adds flags to the Dummy command
func AddDummyFlags(cmd *cobra.Command) {
	addCommonFlags(cmd)
	cmd.Flags().StringP("listen", "l", _config.DummyAddr, "Listen IP:Port for the dummy runtime")
	cmd.Flags().String("catalogue", _config.Catalogue, "YAML file of components and files, built-in if empty")
}

func runDummy(cmd *cobra.Command, args []string) error {
	logger := _config.Flowsync.Logger().WithField("component", "dummy")

	catalogue := dummy.DefaultCatalogue()
	if _config.Catalogue != "" {
		var err error
		catalogue, err = dummy.LoadCatalogue(_config.Catalogue)
		if err != nil {
			return err
		}
	}

	server := dummy.NewServer(_config.DummyAddr, catalogue, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Serve)
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(sctx)
	})

	return g.Wait()
}
