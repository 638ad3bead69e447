package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	utilserrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	"swrgateway/cmd/poller/options"
	"swrgateway/pkg/generic"
	baseoptions "swrgateway/pkg/generic/options"
	"swrgateway/pkg/utils/fileutil"
	"swrgateway/pkg/version"
	"swrgateway/pkg/version/verflag"
	"swrgateway/pkg/web"
)

const (
	ComponentPoller = "swr-poller"
)

func NewPollerCmd() *cobra.Command {
	cleanFlagSet := pflag.NewFlagSet(ComponentPoller, pflag.ContinueOnError)
	o := options.NewDefaultOptions()
	cmd := &cobra.Command{
		Use:                ComponentPoller + " [flags] DEVICE",
		Long:               `The swr-poller polls SMA Sunnyboy inverters over SWR-NET (direct RS-232 or RS-232-over-TCP) and appends time-aligned measurement samples to the stats stream.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// initial flag parse, since we disable cobra's flag parsing
			if err := cleanFlagSet.Parse(args); err != nil {
				klog.ErrorS(err, "Failed to parse flag")
				_ = cmd.Usage()
				os.Exit(1)
			}

			// at most the device endpoint may remain as a non-flag argument
			cmds := cleanFlagSet.Args()
			if len(cmds) > 1 {
				klog.ErrorS(nil, "Unknown command", "command", cmds[1])
				_ = cmd.Usage()
				os.Exit(1)
			}

			verflag.PrintAndExitIfRequested()
			// short-circuit on help
			baseoptions.PrintHelpAndExitIfRequested(cmd, cleanFlagSet)

			// short-circuit on defaultconfig
			baseoptions.PrintDefaultConfigAndExitIfRequested(options.NewDefaultOptions(), cleanFlagSet)

			if err := baseoptions.ParseAndApplyConfigFile(o, args); err != nil {
				return err
			}

			// the positional endpoint wins over the config file
			if len(cmds) == 1 {
				o.Endpoint = cmds[0]
			}

			if errs := options.Validate(o); len(errs) != 0 {
				return utilserrors.NewAggregate(errs)
			}

			// To help debugging, immediately log version
			klog.Infof("Version: %+v", version.Get())
			return run(o)
		},
	}

	verflag.AddFlags(cleanFlagSet)
	o.AddFlags(cleanFlagSet)
	o.AddBaseFlags(cmd, cleanFlagSet)

	return cmd
}

func run(o *options.Options) error {
	stopCh := make(chan struct{})

	if err := fileutil.WritePidFile(o.PidFile); err != nil {
		return err
	}
	defer fileutil.RemovePidFile(o.PidFile)

	c, err := o.Config(stopCh)
	if err != nil {
		return err
	}

	server, err := web.NewServer(generic.Default(), o, c)
	if err != nil {
		return err
	}

	exit, err := server.Serve()
	if err != nil {
		return err
	}
	klog.V(1).InfoS("Server started", "port", o.Port)

	c.PollerMgr.Start()
	klog.V(1).InfoS("Poller started", "endpoint", o.Endpoint, "interval", o.Interval)

	// Graceful shutdown
	// Wait for interrupt signal to gracefully shutdown the server
	exitCh := make(chan os.Signal, 1)
	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be catch, so don't need add it
	signal.Notify(exitCh, syscall.SIGINT, syscall.SIGTERM)
	<-exitCh
	ctx, cancel := context.WithTimeout(context.Background(), o.Wait)
	defer cancel()

	exit(ctx)
	close(stopCh)

	// an in-flight cycle is allowed to complete or fail via timeout
	select {
	case <-c.PollerMgr.Done():
	case <-ctx.Done():
	}

	if c.Publisher != nil {
		c.Publisher.Close()
	}
	c.Store.Close()

	return nil
}
