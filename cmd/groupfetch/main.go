package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/CefBoud/groupfetch/broker"
	"github.com/CefBoud/groupfetch/client"
	"github.com/CefBoud/groupfetch/offsets"
	"github.com/CefBoud/groupfetch/protocol"
	"github.com/CefBoud/groupfetch/types"
)

var (
	configFile string
	logLevel   string
)

func loadConfig() (*types.Configuration, error) {
	config := types.DefaultConfiguration()
	if configFile != "" {
		loaded, err := types.LoadConfiguration(configFile)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	return config, nil
}

func newLogger(config *types.Configuration) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "groupfetch",
		Level: hclog.LevelFromString(config.LogLevel),
	})
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the group coordinator broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(config)

			store, err := offsets.Open(filepath.Join(config.DataDir, "offsets.db"))
			if err != nil {
				return err
			}
			defer store.Close()

			b := broker.NewBroker(config, store, logger)
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigChan
				b.Shutdown()
			}()
			return b.Startup()
		},
	}
	return cmd
}

// parseTopicPartitions parses "topic:0,topic:1" pairs.
func parseTopicPartitions(args []string) ([]types.TopicPartition, error) {
	var res []types.TopicPartition
	for _, arg := range args {
		for _, pair := range strings.Split(arg, ",") {
			topic, partitionStr, found := strings.Cut(pair, ":")
			if !found || topic == "" {
				return nil, fmt.Errorf("invalid topic partition %q, expected topic:partition", pair)
			}
			partition, err := strconv.ParseInt(partitionStr, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid partition in %q: %w", pair, err)
			}
			res = append(res, types.TopicPartition{Topic: topic, Partition: int32(partition)})
		}
	}
	return res, nil
}

func newFetchCommand() *cobra.Command {
	var (
		addr          string
		group         string
		allPartitions bool
		version       int16
	)
	cmd := &cobra.Command{
		Use:   "fetch [topic:partition ...]",
		Short: "Fetch committed offsets for a consumer group",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Dial(addr, "groupfetch-cli")
			if err != nil {
				return err
			}
			defer c.Close()

			if version < 0 {
				negotiated, err := c.NegotiateOffsetFetchVersion()
				if err != nil {
					return err
				}
				version = negotiated
			}

			var b *protocol.OffsetFetchBuilder
			if allPartitions {
				b = protocol.NewAllPartitionsBuilder(group)
			} else {
				partitions, err := parseTopicPartitions(args)
				if err != nil {
					return err
				}
				b = protocol.NewOffsetFetchBuilder(group, partitions)
			}
			request, err := b.Build(version)
			if err != nil {
				return err
			}
			response, err := c.FetchOffsets(request)
			if err != nil {
				return err
			}

			if response.ErrorCode != 0 {
				return fmt.Errorf("offset fetch failed: %s", protocol.ErrorForCode(response.ErrorCode).Message)
			}
			for _, topic := range response.Topics {
				for _, partition := range topic.Partitions {
					if partition.ErrorCode != 0 {
						fmt.Printf("%s-%d\terror: %s\n", topic.Name, partition.PartitionIndex, protocol.ErrorForCode(partition.ErrorCode).Message)
						continue
					}
					fmt.Printf("%s-%d\toffset=%d\tepoch=%d\tmetadata=%q\n",
						topic.Name, partition.PartitionIndex,
						partition.CommittedOffset, partition.CommittedLeaderEpoch, partition.Metadata)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:9092", "broker address")
	cmd.Flags().StringVar(&group, "group", "", "consumer group id")
	cmd.Flags().BoolVar(&allPartitions, "all-partitions", false, "fetch every partition the group has offsets for")
	cmd.Flags().Int16Var(&version, "version", -1, "OffsetFetch version (default: negotiate)")
	cmd.MarkFlagRequired("group")
	return cmd
}

func newCommitCommand() *cobra.Command {
	var (
		group       string
		offset      int64
		leaderEpoch int32
		metadata    string
	)
	cmd := &cobra.Command{
		Use:   "commit <topic:partition>",
		Short: "Write a committed offset directly into the offsets store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			partitions, err := parseTopicPartitions(args)
			if err != nil {
				return err
			}
			store, err := offsets.Open(filepath.Join(config.DataDir, "offsets.db"))
			if err != nil {
				return err
			}
			defer store.Close()

			for _, tp := range partitions {
				err := store.Commit(group, tp, offsets.Committed{
					Offset:      offset,
					LeaderEpoch: leaderEpoch,
					Metadata:    metadata,
				})
				if err != nil {
					return err
				}
				fmt.Printf("committed %s-%d offset=%d\n", tp.Topic, tp.Partition, offset)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "consumer group id")
	cmd.Flags().Int64Var(&offset, "offset", 0, "offset to commit")
	cmd.Flags().Int32Var(&leaderEpoch, "leader-epoch", -1, "leader epoch (-1 if unknown)")
	cmd.Flags().StringVar(&metadata, "metadata", "", "commit metadata")
	cmd.MarkFlagRequired("group")
	return cmd
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "groupfetch",
		Short: "groupfetch serves and queries consumer group committed offsets",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to yaml configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (TRACE, DEBUG, INFO, WARN, ERROR)")
	rootCmd.AddCommand(newServeCommand(), newFetchCommand(), newCommitCommand())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
