package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	config "github.com/mwantia/modbot/internal/config/server"
	"github.com/mwantia/modbot/pkg/db/store"
)

func NewTagsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage the tag knowledge base",
		Long:  "Inspect and maintain the tag knowledge base directly in the configured store, without a running agent.",
	}

	cmd.AddCommand(NewTagsListCommand())
	cmd.AddCommand(NewTagsShowCommand())
	cmd.AddCommand(NewTagsRemoveCommand())
	cmd.AddCommand(NewTagsAliasCommand())
	cmd.AddCommand(NewTagsExportCommand())
	cmd.AddCommand(NewTagsImportCommand())

	return cmd
}

func NewTagsListCommand() *cobra.Command {
	var query store.TagQuery

	cmd := &cobra.Command{
		Use:   "ls [prefix]",
		Short: "List tags",
		Long:  "List tags ordered by name, optionally filtered by a name prefix or creator.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				query.Prefix = args[0]
			}
			return withStore(cmd, func(ctx context.Context, tags store.TagStore) error {
				summaries, err := tags.ListTags(ctx, query)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tCREATOR\tUSES\tRESTRICTED")
				for _, t := range summaries {
					fmt.Fprintf(w, "%s\t%s\t%d\t%t\n", t.Name, t.CreatorID, t.TimesUsed, t.Restricted)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&query.CreatorID, "creator", "", "Only list tags created by this member")
	cmd.Flags().IntVarP(&query.Limit, "limit", "n", 0, "Maximum number of tags to list")
	cmd.Flags().IntVar(&query.Offset, "offset", 0, "Number of tags to skip")

	return cmd
}

func NewTagsShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a tag",
		Long:  "Show a tag and its metadata. Aliases resolve to the tag they point at.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, tags store.TagStore) error {
				tag, err := tags.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				aliases, err := tags.TagAliases(ctx, tag.Name)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Name:       %s\n", tag.Name)
				fmt.Fprintf(out, "Creator:    %s\n", tag.CreatorID)
				fmt.Fprintf(out, "Created:    %s\n", tag.CreatedAt.Format("2006-01-02 15:04:05"))
				if tag.LastEditedAt != nil && tag.LastEditorID != nil {
					fmt.Fprintf(out, "Edited:     %s by %s\n", tag.LastEditedAt.Format("2006-01-02 15:04:05"), *tag.LastEditorID)
				}
				fmt.Fprintf(out, "Uses:       %d\n", tag.TimesUsed)
				fmt.Fprintf(out, "Restricted: %t\n", tag.Restricted)
				if len(aliases) > 0 {
					fmt.Fprintf(out, "Aliases:    %s\n", strings.Join(aliases, ", "))
				}
				fmt.Fprintf(out, "\n%s\n", tag.Content)
				return nil
			})
		},
	}

	return cmd
}

func NewTagsRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a tag or alias",
		Long:  "Removes a tag together with all of its aliases. Removing an alias leaves its tag in place.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, tags store.TagStore) error {
				result, err := tags.DeleteTag(ctx, args[0])
				if err != nil {
					return err
				}
				if result.Alias {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed alias '%s' of '%s'\n", result.Name, result.TagName)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed tag '%s' and %d alias(es)\n", result.Name, len(result.Aliases))
				return nil
			})
		},
	}

	return cmd
}

func NewTagsAliasCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias <existing> <new>",
		Short: "Create an alias",
		Long:  "Creates a new alias pointing at an existing tag.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, tags store.TagStore) error {
				alias, err := tags.AddAlias(ctx, args[1], args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created alias '%s' -> '%s'\n", alias.Alias, alias.TagName)
				return nil
			})
		},
	}

	return cmd
}

// exportFile is the YAML layout used by export and import.
type exportFile struct {
	Tags []exportTag `yaml:"tags"`
}

type exportTag struct {
	Name       string   `yaml:"name"`
	Content    string   `yaml:"content"`
	CreatorID  string   `yaml:"creator_id"`
	Restricted bool     `yaml:"restricted,omitempty"`
	TimesUsed  int64    `yaml:"times_used,omitempty"`
	Aliases    []string `yaml:"aliases,omitempty"`
}

func NewTagsExportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all tags as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, tags store.TagStore) error {
				all, err := tags.AllTags(ctx)
				if err != nil {
					return err
				}

				file := exportFile{Tags: make([]exportTag, 0, len(all))}
				for _, tag := range all {
					entry := exportTag{
						Name:       tag.Name,
						Content:    tag.Content,
						CreatorID:  tag.CreatorID,
						Restricted: tag.Restricted,
						TimesUsed:  tag.TimesUsed,
					}
					for _, alias := range tag.Aliases {
						entry.Aliases = append(entry.Aliases, alias.Alias)
					}
					file.Tags = append(file.Tags, entry)
				}

				data, err := yaml.Marshal(file)
				if err != nil {
					return fmt.Errorf("failed to marshal tags: %w", err)
				}
				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(output, data, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tag(s) to %s\n", len(file.Tags), output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "File to write, '-' for stdout")

	return cmd
}

func NewTagsImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import tags from YAML",
		Long: `Imports tags produced by 'tags export'. Names that already exist are skipped.

Usage counters are not imported; imported tags start at zero uses.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var file exportFile
			if err := readYAML(args[0], cmd.InOrStdin(), &file); err != nil {
				return err
			}

			return withStore(cmd, func(ctx context.Context, tags store.TagStore) error {
				out := cmd.OutOrStdout()
				var imported, skipped int

				for _, entry := range file.Tags {
					tag, err := tags.CreateTag(ctx, entry.Name, entry.Content, entry.CreatorID)
					if errors.Is(err, store.ErrNameCollision) {
						fmt.Fprintf(out, "Skipping '%s' (name exists)\n", entry.Name)
						skipped++
						continue
					}
					if err != nil {
						return fmt.Errorf("failed to import '%s': %w", entry.Name, err)
					}
					if entry.Restricted {
						if _, err := tags.RestrictTag(ctx, tag.Name, true); err != nil {
							return err
						}
					}
					for _, alias := range entry.Aliases {
						if _, err := tags.AddAlias(ctx, alias, tag.Name); err != nil {
							if errors.Is(err, store.ErrNameCollision) {
								fmt.Fprintf(out, "Skipping alias '%s' (name exists)\n", alias)
								continue
							}
							return fmt.Errorf("failed to import alias '%s': %w", alias, err)
						}
					}
					imported++
				}

				fmt.Fprintf(out, "Imported %d tag(s), skipped %d\n", imported, skipped)
				return nil
			})
		},
	}

	return cmd
}

func readYAML(path string, stdin io.Reader, out any) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func withStore(cmd *cobra.Command, fn func(ctx context.Context, tags store.TagStore) error) error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load server configuration: %w", err)
	}
	if !cfg.Metadata.Enabled {
		return errors.New("persistence is disabled in the configuration")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tags, err := store.Open(ctx, cfg.Metadata)
	if err != nil {
		return err
	}
	defer tags.Close()

	return fn(ctx, tags)
}
