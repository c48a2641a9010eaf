package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/pocketscience"
	"github.com/eringen/pocketscience/content"
)

// withStore opens the configured store for the duration of fn.
func (c *cli) withStore(ctx context.Context, fn func(content.Store) error) error {
	s, err := pocketscience.OpenStore(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if closer, ok := s.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				c.logger.Warn("closing store", zap.Error(err))
			}
		}
	}()
	return fn(s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writePostTable(w io.Writer, posts []content.Post) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSLUG\tTITLE\tTAGS")
	for _, p := range posts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.PublishDate, p.Slug, p.Title, strings.Join(p.Tags, ", "))
	}
	return tw.Flush()
}

func newPostsCmd(c *cli) *cobra.Command {
	var (
		tag    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s content.Store) error {
				var (
					posts []content.Post
					err   error
				)
				if tag != "" {
					posts, err = s.ListPostsByTag(cmd.Context(), tag)
				} else {
					posts, err = s.ListPosts(cmd.Context())
				}
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), posts)
				}
				return writePostTable(cmd.OutOrStdout(), posts)
			})
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Only list posts with this tag (case-insensitive)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newPostCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "post <slug>",
		Short: "Print one post as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s content.Store) error {
				p, err := s.GetPost(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if p == nil {
					return fmt.Errorf("post %q not found", args[0])
				}
				return writeJSON(cmd.OutOrStdout(), p)
			})
		},
	}
}

func newSlugsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "slugs",
		Short: "List every post slug",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s content.Store) error {
				slugs, err := s.ListSlugs(cmd.Context())
				if err != nil {
					return err
				}
				for _, slug := range slugs {
					fmt.Fprintln(cmd.OutOrStdout(), slug)
				}
				return nil
			})
		},
	}
}

func newTagsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List every distinct tag, sorted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(s content.Store) error {
				tags, err := content.ListTags(cmd.Context(), s)
				if err != nil {
					return err
				}
				for _, t := range tags {
					fmt.Fprintln(cmd.OutOrStdout(), t)
				}
				return nil
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pocketscience version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "pocketscience %s\n", version)
			return nil
		},
	}
}
