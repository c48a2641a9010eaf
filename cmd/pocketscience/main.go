// Command pocketscience serves and inspects a pocketscience blog.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eringen/pocketscience"
)

// version is set at build time via ldflags.
var version = "dev"

// cli carries global flags and the state PersistentPreRunE builds from them.
type cli struct {
	verbose    bool
	backend    string
	contentDir string
	dbPath     string

	cfg    pocketscience.SiteConfig
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "pocketscience",
		Short: "pocketscience - a blog served from markdown files or a database",
		Long: `pocketscience reads blog posts from a directory of markdown files with
YAML front matter, a SQLite database, or PostgreSQL, and serves them as HTML
pages, RSS, a sitemap and a JSON API.

Configuration comes from the environment (and an optional .env file); the
global flags below override it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVar(&c.backend, "backend", "", "Content backend: fs, sqlite or postgres (env CONTENT_BACKEND)")
	root.PersistentFlags().StringVar(&c.contentDir, "content-dir", "", "Post directory for the fs backend (env CONTENT_DIR)")
	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "SQLite database path (env DATABASE_PATH)")

	root.AddCommand(
		newServeCmd(c),
		newPostsCmd(c),
		newPostCmd(c),
		newSlugsCmd(c),
		newTagsCmd(c),
		newImportCmd(c),
		newVersionCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	config := zap.NewProductionConfig()
	if c.verbose {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.logger = logger

	cfg, err := pocketscience.ConfigFromEnv()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = c.backend
	}
	if flags.Changed("content-dir") {
		cfg.ContentDir = c.contentDir
	}
	if flags.Changed("db") {
		cfg.DatabasePath = c.dbPath
	}
	c.cfg = cfg
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
