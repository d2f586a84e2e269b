package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/SwissLife-OSS/escmd/internal/log"
	"github.com/urfave/cli/v3"
)

func main() {
	err := run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	return newApp().Run(ctx, args)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "escmd",
		Usage: "Elasticsearch administration tool",
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log.Init(log.Config{
				Verbose:    cmd.Bool("verbose"),
				JSONOutput: cmd.Bool("log-json"),
				Output:     cmd.Root().ErrWriter,
			})
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "show cluster health",
				Action: health,
			},
			{
				Name:      "indices",
				Usage:     "list indices, optionally filtered by a case-insensitive regular expression",
				ArgsUsage: "[regex]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only list indices with the given health, one of green, yellow, red",
					},
					&cli.StringFlag{
						Name:  "min-size",
						Usage: "Minimum size of index in order to be contained in the result, supported units: k, m, g, t, p",
					},
				},
				Action: listIndices,
			},
			{
				Name:   "nodes",
				Usage:  "list cluster nodes",
				Action: listNodes,
			},
			{
				Name:      "shards",
				Usage:     "list shards, optionally filtered by a case-insensitive regular expression on the index",
				ArgsUsage: "[regex]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "server",
						Usage: "Only list shards located on the given node",
					},
					&cli.BoolFlag{
						Name:  "size",
						Usage: "Sort shards by size, largest first",
					},
				},
				Action: listShards,
			},
			{
				Name:  "snapshots",
				Usage: "commands to inspect snapshots",
				Commands: []*cli.Command{
					{
						Name:      "list",
						Usage:     "list snapshots of a repository",
						ArgsUsage: "[regex]",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "repository",
								Usage: "Snapshot repository, defaults to the snapshot_repository of the cluster configuration",
							},
						},
						Action: listSnapshots,
					},
				},
			},
			{
				Name:  "ilm",
				Usage: "commands to interact with ilm managed indices",
				Commands: []*cli.Command{
					{
						Name:   "status",
						Usage:  "show ilm operation mode and an overview of managed indices",
						Action: ilmStatus,
					},
					{
						Name:   "policies",
						Usage:  "list ilm policies and their phases",
						Action: ilmPolicies,
					},
					{
						Name:      "explain",
						Usage:     "show the lifecycle state of an index",
						ArgsUsage: "<index>",
						Action:    ilmExplain,
					},
					{
						Name:      "errors",
						Usage:     "list managed indices in the ERROR step",
						ArgsUsage: "[pattern]",
						Action:    ilmErrors,
					},
					{
						Name:  "list",
						Usage: "list ilm managed indices filtered by phase",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:    "phase",
								Aliases: []string{"p"},
								Usage:   "Filter to only include indices in the given phase",
							},
							&cli.StringFlag{
								Name:  "ilm-policy",
								Usage: "Filter to only include indices managed by the given policy",
							},
							&cli.StringSliceFlag{
								Name:    "sort",
								Aliases: []string{"s"},
								Usage:   "Sort indices by the given columns, allowed columns are: age, size",
							},
							&cli.StringFlag{
								Name:  "min-size",
								Usage: "Minimum size of index in order to be contained in the result, supported units: k, m, g, t, p",
							},
							&cli.IntFlag{
								Name:  "min-age-days",
								Usage: "Minimum age of index in days in order to be contained in the result",
							},
						},
						Action: ilmList,
					},
					{
						Name:      "move",
						Usage:     "move ilm managed index to a different phase",
						ArgsUsage: "<index-pattern>",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "target-phase",
								Aliases:  []string{"t"},
								Usage:    "Phase to move the indices to, one of hot, warm, cold, frozen, delete",
								Required: true,
							},
							&cli.BoolFlag{
								Name:    "force",
								Aliases: []string{"f"},
								Usage:   "Try to move the index to the new phase even with pre condition checks failing",
							},
							&cli.BoolFlag{
								Name:  "dry-run",
								Usage: "Only show which indices would be moved",
							},
						},
						Action: ilmMove,
					},
					{
						Name:      "remove-policy",
						Usage:     "remove the ilm policy from all indices matching a pattern, a list or a file",
						ArgsUsage: "[pattern]",
						Flags:     reconcileFlags(),
						Action:    ilmRemovePolicy,
					},
					{
						Name:      "set-policy",
						Usage:     "assign an ilm policy to all indices matching a pattern, a list or a file",
						ArgsUsage: "<policy> [pattern]",
						Flags:     reconcileFlags(),
						Action:    ilmSetPolicy,
					},
				},
			},
			{
				Name:      "set-replicas",
				Usage:     "set the number of replicas of all indices matching a pattern, a list or a file",
				ArgsUsage: "[pattern]",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"c"},
						Usage:   "Target number of replicas",
					},
					&cli.StringFlag{
						Name:    "pattern",
						Aliases: []string{"p"},
						Usage:   "Case-insensitive regular expression selecting the indices",
					},
					&cli.BoolFlag{
						Name:  "no-replicas-only",
						Usage: "Only update indices that currently have no replicas",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Same as --yes",
					},
				}, reconcileFlags()...),
				Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
					if cmd.Bool("force") {
						if err := cmd.Set("yes", "true"); err != nil {
							return ctx, err
						}
					}
					return ctx, nil
				},
				Action: setReplicas,
			},
			{
				Name:  "allocation",
				Usage: "commands to manage cluster level shard allocation",
				Commands: []*cli.Command{
					{
						Name:   "exclude",
						Usage:  "list, add or remove nodes excluded from shard allocation",
						Action: allocationExcludeList,
						Commands: []*cli.Command{
							{
								Name:      "add",
								Usage:     "exclude a node from shard allocation",
								ArgsUsage: "<node>",
								Action:    allocationExcludeAdd,
							},
							{
								Name:      "remove",
								Usage:     "allow shard allocation on an excluded node again",
								ArgsUsage: "<node>",
								Action:    allocationExcludeRemove,
							},
							{
								Name:  "reset",
								Usage: "clear the exclusion list",
								Flags: []cli.Flag{
									&cli.BoolFlag{
										Name:  "yes-i-really-mean-it",
										Usage: "Confirm resetting the exclusion list",
									},
								},
								Action: allocationExcludeReset,
							},
						},
					},
				},
			},
			{
				Name:      "exclude",
				Usage:     "move the shards of an index away from a node",
				ArgsUsage: "<index>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "server",
						Usage:    "Node name to move the shards away from",
						Required: true,
					},
				},
				Action: excludeIndex,
			},
			{
				Name:      "exclude-reset",
				Usage:     "reset the allocation exclusion of an index",
				ArgsUsage: "<index>",
				Action:    excludeIndexReset,
			},
			{
				Name:      "rollover",
				Usage:     "roll a datastream or alias over to a new index",
				ArgsUsage: "<datastream>",
				Action:    rollover,
			},
			{
				Name:      "freeze",
				Usage:     "freeze an index",
				ArgsUsage: "<index>",
				Action:    freeze,
			},
			{
				Name:      "unfreeze",
				Usage:     "unfreeze an index or, with --regex, all matching indices",
				ArgsUsage: "<index|regex>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "regex",
						Aliases: []string{"r"},
						Usage:   "Treat the argument as a case-insensitive regular expression",
					},
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Do not ask for confirmation",
					},
				},
				Action: unfreeze,
			},
			{
				Name:  "flush",
				Usage: "flush all indices, retrying while shards fail",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Number of retries after the first attempt",
						Value: 10,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Delay between two attempts",
						Value: 10 * time.Second,
					},
				},
				Action: flush,
			},
			{
				Name:      "dangling",
				Usage:     "list dangling indices, delete one or all of them",
				ArgsUsage: "[uuid]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "delete",
						Usage: "Delete the dangling index with the given uuid",
					},
					&cli.BoolFlag{
						Name:  "cleanup-all",
						Usage: "Delete all dangling indices",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Only show which dangling indices would be deleted",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Attempts per dangling index",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Delay between two attempts",
						Value: 5 * time.Second,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Overall time limit per dangling index",
						Value: 60 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "yes-i-really-mean-it",
						Usage: "Confirm deleting all dangling indices",
					},
				},
				Action: dangling,
			},
			{
				Name:   "locations",
				Usage:  "list configured clusters and cluster groups",
				Action: listLocations,
			},
			{
				Name:   "get-default",
				Usage:  "show the default cluster",
				Action: getDefault,
			},
			{
				Name:      "set-default",
				Usage:     "set the default cluster",
				ArgsUsage: "<name>",
				Action:    setDefault,
			},
			{
				Name:      "history",
				Usage:     "list reconciliation runs or show the report of one run",
				ArgsUsage: "[run-id]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to list, 0 lists all",
						Value: 20,
					},
				},
				Action: history,
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Cluster inventory file, default ~/.config/escmd/elastic_servers.yml",
				Sources: cli.EnvVars("ESCMD_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "location",
				Aliases: []string{"l"},
				Usage:   "Name of the cluster in the inventory, defaults to the stored default cluster",
				Sources: cli.EnvVars("ESCMD_LOCATION"),
			},
			&cli.StringFlag{
				Name:    "url",
				Usage:   "Comma separated Elasticsearch URLs, bypasses the inventory",
				Sources: cli.EnvVars("ESCMD_URL"),
			},
			&cli.StringFlag{
				Name:    "username",
				Usage:   "Username used to authenticate against Elasticsearch",
				Sources: cli.EnvVars("ELASTIC_USERNAME"),
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "Password used to authenticate against Elasticsearch",
				Sources: cli.EnvVars("ELASTIC_PASSWORD"),
			},
			&cli.BoolFlag{
				Name:  "insecure",
				Usage: "Skip TLS certificate verification",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"o"},
				Usage:   "Output format, table or json",
				Value:   formatTable,
			},
			&cli.StringFlag{
				Name:  "journal",
				Usage: "Run history database, default history.db next to the inventory file",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output",
				Value:   false,
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Write logs as JSON lines",
			},
		},
	}
}
