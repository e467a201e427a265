package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/standardbeagle/stepdex/internal/config"
	"github.com/standardbeagle/stepdex/internal/debug"
	"github.com/standardbeagle/stepdex/internal/indexing"
	"github.com/standardbeagle/stepdex/internal/mcp"
	"github.com/standardbeagle/stepdex/internal/version"
	"github.com/standardbeagle/stepdex/pkg/pathutil"

	"github.com/urfave/cli/v2"
)

var (
	Version     = version.Version
	indexer     *indexing.MasterIndex
	projectRoot string
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", absRoot, err)
	}

	if langs := c.StringSlice("lang"); len(langs) > 0 {
		cfg.Scan.Languages = langs
	}
	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}
	if fragments := c.StringSlice("exclude-fragment"); len(fragments) > 0 {
		cfg.ExcludedFragments = append(cfg.ExcludedFragments, fragments...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupIndexer(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	indexer = indexing.NewMasterIndex(cfg)
	projectRoot = cfg.Project.Root
	return nil
}

func main() {
	app := &cli.App{
		Name:                   "stepdex",
		Usage:                  "Step definition indexing and fuzzy search for BDD projects",
		Version:                Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to index (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "lang",
				Usage: "Restrict scanning to these languages (go, csharp, java, javascript, typescript, python)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include files matching glob patterns (e.g., --include 'src/**/*.cs')",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns (e.g., --exclude '**/generated/**')",
			},
			&cli.StringSliceFlag{
				Name:  "exclude-fragment",
				Usage: "Exclude paths containing a fragment (separator-insensitive substring)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "search",
				Aliases: []string{"s"},
				Usage:   "Fuzzy search step definitions; blank query lists everything",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "group",
						Aliases: []string{"g"},
						Usage:   "Restrict to these group labels",
					},
					&cli.StringFlag{
						Name:  "screen",
						Usage: "Restrict to this screen tag",
					},
					&cli.IntFlag{
						Name:    "max",
						Aliases: []string{"n"},
						Usage:   "Max number of results",
						Value:   50,
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: searchCommand,
			},
			{
				Name:    "missing",
				Aliases: []string{"m"},
				Usage:   "List scenario steps with no matching step definition",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: missingCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show corpus counts: definitions, features, scenarios, groups, screens",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: statsCommand,
			},
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "List all step definitions grouped by source file",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "group",
						Aliases: []string{"g"},
						Usage:   "Restrict to these group labels",
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: listCommand,
			},
			{
				Name:   "serve",
				Usage:  "Run as MCP server over stdio (with file watching)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-watch",
						Usage: "Disable file watching",
					},
				},
				Action: serveCommand,
			},
		},
		Before: func(c *cli.Context) error {
			if c.Args().First() == "serve" {
				// MCP mode suppresses all debug output before anything prints
				debug.SetMCPMode(true)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func searchCommand(c *cli.Context) error {
	if err := setupIndexer(c); err != nil {
		return err
	}

	query := c.Args().First()
	results := indexer.Search(query, c.StringSlice("group"), c.String("screen"))

	total := len(results)
	if max := c.Int("max"); max > 0 && len(results) > max {
		results = results[:max]
	}

	if c.Bool("json") {
		type row struct {
			Text string `json:"text"`
			Path string `json:"path"`
			Line int    `json:"line"`
		}
		rows := make([]row, 0, len(results))
		for _, r := range results {
			rows = append(rows, row{
				Text: r.DisplayText,
				Path: pathutil.ToRelative(r.SourcePath, projectRoot),
				Line: r.Line,
			})
		}
		return printJSON(map[string]interface{}{
			"query":   query,
			"total":   total,
			"results": rows,
		})
	}

	if len(results) == 0 {
		fmt.Println("No matching step definitions found")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%s\n    %s:%d\n", r.DisplayText, pathutil.ToRelative(r.SourcePath, projectRoot), r.Line)
	}
	if total > len(results) {
		fmt.Printf("(%d more, use --max to see them)\n", total-len(results))
	}
	return nil
}

func missingCommand(c *cli.Context) error {
	if err := setupIndexer(c); err != nil {
		return err
	}

	missing := indexer.FindMissingInProject()

	if c.Bool("json") {
		type row struct {
			Text string `json:"text"`
			Path string `json:"path"`
			Line int    `json:"line"`
		}
		rows := make([]row, 0, len(missing))
		for _, m := range missing {
			rows = append(rows, row{
				Text: m.Text,
				Path: pathutil.ToRelative(m.SourcePath, projectRoot),
				Line: m.Line,
			})
		}
		return printJSON(map[string]interface{}{
			"missing_count": len(missing),
			"missing":       rows,
		})
	}

	if len(missing) == 0 {
		fmt.Println("All scenario steps have a matching step definition")
		return nil
	}
	fmt.Printf("%d steps without a matching definition:\n\n", len(missing))
	for _, m := range missing {
		fmt.Printf("  %s\n      %s:%d\n", m.Text, pathutil.ToRelative(m.SourcePath, projectRoot), m.Line)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	if err := setupIndexer(c); err != nil {
		return err
	}

	stats := map[string]interface{}{
		"step_definitions": indexer.CountStepDefinitions(),
		"feature_files":    indexer.CountFeatureFiles(),
		"scenarios":        indexer.CountScenarios(),
		"groups":           indexer.GroupCounts(),
		"screens":          indexer.ScreenCounts(),
	}

	if c.Bool("json") {
		return printJSON(stats)
	}

	fmt.Printf("Step definitions: %d\n", indexer.CountStepDefinitions())
	fmt.Printf("Feature files:    %d\n", indexer.CountFeatureFiles())
	fmt.Printf("Scenarios:        %d\n", indexer.CountScenarios())
	printCountMap("Groups", indexer.GroupCounts())
	printCountMap("Screens", indexer.ScreenCounts())
	return nil
}

func listCommand(c *cli.Context) error {
	if err := setupIndexer(c); err != nil {
		return err
	}

	defs := indexer.Index().Definitions()
	groupFilter := toSet(c.StringSlice("group"))

	type row struct {
		Text   string `json:"text"`
		Group  string `json:"group"`
		Screen string `json:"screen,omitempty"`
		Path   string `json:"path"`
		Line   int    `json:"line"`
	}
	rows := make([]row, 0, len(defs))
	for _, d := range defs {
		if len(groupFilter) > 0 {
			if _, ok := groupFilter[d.GroupLabel]; !ok {
				continue
			}
		}
		rows = append(rows, row{
			Text:   d.Pattern.Display(),
			Group:  d.GroupLabel,
			Screen: d.ScreenTag,
			Path:   pathutil.ToRelative(d.SourcePath, projectRoot),
			Line:   d.Line,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Path != rows[j].Path {
			return rows[i].Path < rows[j].Path
		}
		return rows[i].Line < rows[j].Line
	})

	if c.Bool("json") {
		return printJSON(rows)
	}

	lastPath := ""
	for _, r := range rows {
		if r.Path != lastPath {
			fmt.Printf("\n%s\n", r.Path)
			lastPath = r.Path
		}
		fmt.Printf("  %4d  %s\n", r.Line, r.Text)
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	debug.SetMCPMode(true)

	if err := setupIndexer(c); err != nil {
		return err
	}
	defer indexer.Close()

	if !c.Bool("no-watch") && indexer.Config().Watch.Enabled {
		if err := indexer.StartWatching(); err != nil {
			// Watching is best-effort; serve without it rather than failing
			debug.LogMCP("file watching unavailable: %v\n", err)
		}
	}

	mcpServer := mcp.NewServer(indexer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- mcpServer.Run(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		debug.LogMCP("received signal %v, shutting down\n", sig)
		cancel()

		shutdownTimer := time.NewTimer(2 * time.Second)
		defer shutdownTimer.Stop()

		select {
		case err := <-errChan:
			return err
		case <-shutdownTimer.C:
			// Break the stdio transport loop if the server did not stop in time
			os.Stdin.Close()
			select {
			case err := <-errChan:
				return err
			case <-time.After(500 * time.Millisecond):
				return nil
			}
		}
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCountMap(label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("%s:\n", label)
	for _, k := range keys {
		fmt.Printf("  %-30s %d\n", k, counts[k])
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
