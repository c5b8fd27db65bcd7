// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/multiquery"
	"github.com/poiesic/multiquery/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the CLI. Engine options are passed to every engine the
// commands open.
func newApp(opts ...multiquery.EngineOption) *cli.App {
	r := &runner{engineOptions: opts}

	return &cli.App{
		Name:  "multiquery",
		Usage: "Multi-query retrieval over a vector index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"MULTIQUERY_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Expand a question into several queries and print the merged results",
				ArgsUsage: "QUERY",
				Action:    r.searchCommand,
				Flags: append(indexFlags(),
					&cli.IntFlag{
						Name:    "queries",
						Aliases: []string{"n"},
						Usage:   "Number of alternative queries to generate",
					},
					&cli.IntFlag{
						Name:    "results",
						Aliases: []string{"k"},
						Usage:   "Number of results per query",
					},
					&cli.BoolFlag{
						Name:  "no-original",
						Usage: "Do not search the original question",
					},
					&cli.BoolFlag{
						Name:  "original-last",
						Usage: "Search the original question after the generated ones",
					},
					&cli.StringFlag{
						Name:  "prompt",
						Usage: "Prompt template; {question} and {n} are substituted",
					},
					&cli.StringFlag{
						Name:  "metrics-file",
						Usage: "Write Prometheus metrics in text format to this file",
					},
				),
			},
			{
				Name:      "ingest",
				Usage:     "Chunk files and add them to the index",
				ArgsUsage: "FILE...",
				Action:    r.ingestCommand,
				Flags: append(indexFlags(),
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum characters per chunk",
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Characters shared by neighbouring chunks",
					},
				),
			},
			{
				Name:   "reembed",
				Usage:  "Re-embed every document in the local index",
				Action: r.reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Path to BadgerDB database directory",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "resume",
						Usage: "Continue from the last saved checkpoint",
					},
				},
			},
			{
				Name:   "collection",
				Usage:  "Create the Qdrant collection if it does not exist",
				Action: r.collectionCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Collection name (overrides qdrant.collection_name)",
					},
				},
			},
		},
	}
}

func indexFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "index",
			Usage: "Index backend (local, qdrant)",
		},
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory for the local index",
		},
	}
}

func setupLogger(c *cli.Context) error {
	level, err := config.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
