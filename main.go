package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/hashicorp/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/CefBoud/kafkalite/broker"
	log "github.com/CefBoud/kafkalite/logging"
	"github.com/CefBoud/kafkalite/state"
	"github.com/CefBoud/kafkalite/storage"
	"github.com/CefBoud/kafkalite/types"
)

// Version is set at build time
var Version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	config := types.DefaultConfiguration()
	root := &cobra.Command{
		Use:          "kafkalite",
		Short:        "A Kafka broker serving ApiVersions, DescribeTopicPartitions and Fetch from KRaft log segments",
		Version:      Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(config)
		},
	}
	addBrokerFlags(root.PersistentFlags(), &config)
	root.AddCommand(newDumpCommand(&config), newTopicsCommand(&config))
	return root
}

func addBrokerFlags(flags *pflag.FlagSet, config *types.Configuration) {
	flags.StringVar(&config.LogDir, "log-dir", config.LogDir, "directory holding the partition log directories")
	flags.StringVar(&config.MetadataLogPath, "metadata-log", config.MetadataLogPath, "cluster metadata segment (default {log-dir}/__cluster_metadata-0/00000000000000000000.log)")
	flags.StringVar(&config.BrokerHost, "host", config.BrokerHost, "address to listen on, go-sockaddr templates such as {{ GetPrivateIP }} are resolved")
	flags.Uint32Var(&config.BrokerPort, "port", config.BrokerPort, "port to listen on")
	flags.StringVar(&config.APIVersionsFile, "api-versions", config.APIVersionsFile, "JSON table of supported API versions (default built in)")
	flags.StringVar(&config.LogLevel, "log-level", config.LogLevel, "TRACE, DEBUG, INFO, WARN or ERROR")
	flags.DurationVar(&config.MetricsInterval, "metrics-interval", config.MetricsInterval, "aggregation interval of the in-memory metrics sink")
}

func printBanner(config types.Configuration) {
	bold := color.New(color.FgCyan, color.Bold)
	bold.Printf("kafkalite %s\n", Version)
	fmt.Printf("  %s %s:%d\n", color.GreenString("listening on"), config.BrokerHost, config.BrokerPort)
	fmt.Printf("  %s %s\n", color.GreenString("log dir     "), config.LogDir)
	fmt.Printf("  %s %s\n", color.GreenString("metadata log"), config.ClusterMetadataLog())
}

// setupMetrics installs an in-memory sink. SIGUSR1 dumps its content to stderr.
func setupMetrics(config types.Configuration) error {
	sink := metrics.NewInmemSink(config.MetricsInterval, 6*config.MetricsInterval)
	metrics.DefaultInmemSignal(sink)
	metricsConfig := metrics.DefaultConfig("kafkalite")
	metricsConfig.EnableHostname = false
	_, err := metrics.NewGlobal(metricsConfig, sink)
	return err
}

func run(config types.Configuration) error {
	log.SetLogLevel(config.LogLevel)
	printBanner(config)
	if err := setupMetrics(config); err != nil {
		return fmt.Errorf("setting up metrics: %w", err)
	}

	b := broker.NewBroker(config)
	if err := b.Listen(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- b.Serve() }()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		log.Info("received %v, shutting down", sig)
		b.Shutdown()
		<-done
		return nil
	case err := <-done:
		b.Shutdown()
		return err
	}
}

func newDumpCommand(config *types.Configuration) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [segment]",
		Short: "Print the record batches of a log segment (default the cluster metadata log)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ClusterMetadataLog()
			if len(args) == 1 {
				path = args[0]
			}
			batches, err := storage.ReadLogSegment(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, rb := range batches {
				crc := color.GreenString("crc ok")
				if !rb.ChecksumValid() {
					crc = color.RedString("crc mismatch")
				}
				fmt.Fprintf(out, "baseOffset: %d lastOffset: %d count: %d batchLength: %d %s\n",
					rb.BaseOffset, rb.LastOffset(), len(rb.Records), rb.BatchLength, crc)
				for _, r := range rb.Records {
					fmt.Fprintf(out, "  offset: %d %T %+v\n", rb.BaseOffset+r.OffsetDelta, r.Value, r.Value)
				}
			}
			return nil
		},
	}
}

func newTopicsCommand(config *types.Configuration) *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List the topics of the cluster metadata log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := state.LoadIndex(config.ClusterMetadataLog())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, topic := range index.Topics() {
				fmt.Fprintf(out, "%s\t%s\tpartitions: %d\n", topic.Name, topic.TopicID, len(topic.Partitions))
			}
			return nil
		},
	}
}
