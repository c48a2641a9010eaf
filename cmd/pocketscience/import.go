package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/pocketscience/content"
)

// postSaver is implemented by the table-backed stores.
type postSaver interface {
	SavePost(ctx context.Context, p content.Post) error
}

func newImportCmd(c *cli) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy posts from a markdown directory into the configured database",
		Long: `import reads every post in --from (markdown files with YAML front matter)
and upserts it into the configured sqlite or postgres backend. Files that do
not parse are skipped with a warning, as they are when serving.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Backend == content.BackendFS {
				return errors.New("import needs a table backend: pass --backend sqlite or --backend postgres")
			}
			src := content.NewFileStore(from, c.logger)
			posts, err := src.ListPosts(cmd.Context())
			if err != nil {
				return err
			}

			return c.withStore(cmd.Context(), func(s content.Store) error {
				saver, ok := s.(postSaver)
				if !ok {
					return fmt.Errorf("backend %q does not accept writes", c.cfg.Backend)
				}
				for _, p := range posts {
					if err := saver.SavePost(cmd.Context(), p); err != nil {
						return fmt.Errorf("import %s: %w", p.Slug, err)
					}
					c.logger.Debug("imported post", zap.String("slug", p.Slug))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d posts into %s\n", len(posts), c.cfg.Backend)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "content/posts", "Directory of markdown posts to import")
	return cmd
}
