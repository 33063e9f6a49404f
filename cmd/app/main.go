package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notepress/internal"
	"github.com/starford/notepress/internal/site"
	pkgconfig "github.com/starford/notepress/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func syncCmd(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunSync(ctx, cmd.Args().First(), opts...)
}

func listCmd(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunList(ctx, cmd.String("collection"), opts...)
}

func collectionsCmd(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunCollections(ctx, opts...)
}

func generateCmd(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunGenerate(ctx, internal.GenerateParams{
		Collection: cmd.Args().First(),
		OutputDir:  cmd.String("out"),
		Theme:      cmd.String("theme"),
		NoSync:     cmd.Bool("no-sync"),
	}, opts...)
}

func watchCmd(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunWatch(ctx, cmd.Args().First(), opts...)
}

func previewCmd(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunPreview(ctx, opts...)
}

func mcpCmd(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:    "notepress",
		Usage:   "Sync notes and their embedded photos into SQLite and publish them as a static site",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (built-in defaults when missing)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "sync",
				Usage:     "Pull new and changed notes of a collection and extract their images",
				ArgsUsage: "[collection]",
				Action:    syncCmd,
			},
			{
				Name:  "list",
				Usage: "List stored notes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "collection", Usage: "Only notes of this collection"},
				},
				Action: listCmd,
			},
			{
				Name:   "collections",
				Usage:  "List the collections (folders) of the notes app",
				Action: collectionsCmd,
			},
			{
				Name:      "generate",
				Usage:     "Sync a collection and render it as a static HTML site",
				ArgsUsage: "[collection]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory (default site.output_dir)"},
					&cli.StringFlag{Name: "theme", Aliases: []string{"t"}, Usage: fmt.Sprintf("Index theme %v (default site.theme)", site.ThemeNames())},
					&cli.BoolFlag{Name: "no-sync", Usage: "Render what is stored without syncing first"},
				},
				Action: generateCmd,
			},
			{
				Name:      "watch",
				Usage:     "Re-sync whenever the export file changes (file provider only)",
				ArgsUsage: "[collection]",
				Action:    watchCmd,
			},
			{
				Name:   "preview",
				Usage:  "Serve the generated site and stored notes on localhost",
				Action: previewCmd,
			},
			{
				Name:   "mcp",
				Usage:  "Serve notes to MCP clients over stdio",
				Action: mcpCmd,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
