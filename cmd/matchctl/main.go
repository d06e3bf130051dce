// matchctl is the operational CLI for the matching engine: trigger syncs and
// rebuilds, inspect health. It talks to a running server over its HTTP API.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/adhika16/smart-matching-platform-sub000/internal/version"
	"github.com/adhika16/smart-matching-platform-sub000/pkg/client"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "matchctl",
		Usage:   "operate the matching engine",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "base URL of the matching engine API",
				Value:   "http://localhost:8080",
				EnvVars: []string{"MATCHD_ADDR"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "request timeout",
				Value: 5 * time.Minute,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "print the engine health snapshot",
				Action: func(c *cli.Context) error {
					snap, err := engine(c).Health(c.Context)
					if err != nil {
						return err
					}
					return printJSON(snap)
				},
			},
			{
				Name:  "sync",
				Usage: "sync a single entity's embedding",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Usage: "entity kind (job or profile)", Required: true},
					&cli.StringFlag{Name: "id", Usage: "entity id", Required: true},
					&cli.BoolFlag{Name: "force", Usage: "re-embed even when the entity is not searchable"},
				},
				Action: func(c *cli.Context) error {
					out, err := engine(c).Sync(c.Context, c.String("kind"), c.String("id"), c.Bool("force"))
					if err != nil {
						return err
					}
					return printJSON(out)
				},
			},
			{
				Name:  "rebuild",
				Usage: "re-sync every entity of one kind",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Usage: "entity kind (job or profile)", Required: true},
					&cli.BoolFlag{Name: "background", Usage: "dispatch chunks to the worker pool instead of waiting"},
				},
				Action: func(c *cli.Context) error {
					out, err := engine(c).Rebuild(c.Context, c.String("kind"), c.Bool("background"))
					if err != nil {
						return err
					}
					return printJSON(out)
				},
			},
			{
				Name:      "search",
				Usage:     "run a hybrid job search",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Usage: "filter by job category"},
					&cli.StringSliceFlag{Name: "skill", Usage: "filter by required skill (repeatable)"},
					&cli.IntFlag{Name: "limit", Usage: "maximum results", Value: 10},
				},
				Action: func(c *cli.Context) error {
					out, err := engine(c).SearchJobs(c.Context, client.SearchJobsRequest{
						Query: c.Args().First(),
						Filters: client.JobFilters{
							Category: c.String("category"),
							Skills:   c.StringSlice("skill"),
						},
						Limit: c.Int("limit"),
					})
					if err != nil {
						return err
					}
					return printJSON(out)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func engine(c *cli.Context) *client.Client {
	return client.New(c.String("addr"), client.WithTimeout(c.Duration("timeout")))
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("render response: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
