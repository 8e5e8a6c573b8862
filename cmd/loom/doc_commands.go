package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/ipc"
	"loom/internal/prd"
)

func newDocCommand(ctx *commandContext) *cobra.Command {
	docCmd := &cobra.Command{
		Use:   "doc",
		Short: "Manage PRD documents",
	}

	docCmd.AddCommand(newDocCreateCommand(ctx))
	docCmd.AddCommand(newDocListCommand(ctx))
	docCmd.AddCommand(newDocShowCommand(ctx))
	docCmd.AddCommand(newDocUpdateCommand(ctx))
	docCmd.AddCommand(newDocArchiveCommand(ctx))
	docCmd.AddCommand(newDocSetStatusCommand(ctx))

	return docCmd
}

func newDocCreateCommand(ctx *commandContext) *cobra.Command {
	var contentFlag string
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a new draft document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := resolveContent(contentFlag, fileFlag)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DocCreate(args[0], content)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created document %d (%s)\n", resp.Document.ID, resp.Document.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&contentFlag, "content", "", "Inline document content")
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read document content from a file")
	return cmd
}

func newDocListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DocList(listStatuses)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp.Documents)
				}
				if len(resp.Documents) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No documents")
					return nil
				}
				rows := make([][]string, 0, len(resp.Documents))
				for _, doc := range resp.Documents {
					rows = append(rows, []string{
						fmt.Sprintf("%d", doc.ID),
						truncate(doc.Title, 48),
						doc.Status,
						formatTimestamp(doc.UpdatedAt),
						yesNo(doc.Archived),
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Updated", "Archived"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newDocShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a document and its stage states",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DocShow(id)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				doc := resp.Document
				fmt.Fprintf(out, "Document %d: %s\n", doc.ID, doc.Title)
				fmt.Fprintf(out, "Status:   %s\n", doc.Status)
				fmt.Fprintf(out, "Archived: %s\n", yesNo(doc.Archived))
				fmt.Fprintf(out, "Created:  %s\n", formatTimestamp(doc.CreatedAt))
				fmt.Fprintf(out, "Updated:  %s\n", formatTimestamp(doc.UpdatedAt))
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderStageTable(resp.Stages))
				if strings.TrimSpace(doc.Content) != "" {
					fmt.Fprintln(out)
					fmt.Fprintln(out, doc.Content)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}

func newDocUpdateCommand(ctx *commandContext) *cobra.Command {
	var titleFlag string
	var contentFlag string
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a document's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocID(args[0])
			if err != nil {
				return err
			}
			content, err := resolveContent(contentFlag, fileFlag)
			if err != nil {
				return err
			}
			if content == "" {
				return fmt.Errorf("provide content with --content or --file")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.DocUpdate(id, titleFlag, content); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated document %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&titleFlag, "title", "", "New document title (keeps the current one when omitted)")
	cmd.Flags().StringVar(&contentFlag, "content", "", "Inline document content")
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read document content from a file")
	return cmd
}

func newDocArchiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.DocArchive(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Archived document %d\n", id)
				return nil
			})
		},
	}
}

func newDocSetStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Override a document's status",
		Long: "Override a document's status outside the stage transition flow.\n" +
			"Valid statuses: " + strings.Join(statusNames(), ", ") + ".",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.DocSetStatus(id, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Document %d status set to %s\n", id, args[1])
				return nil
			})
		},
	}
}

func resolveContent(content, file string) (string, error) {
	if content != "" && file != "" {
		return "", fmt.Errorf("--content and --file are mutually exclusive")
	}
	if file == "" {
		return content, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read content file: %w", err)
	}
	return string(data), nil
}

func statusNames() []string {
	statuses := prd.AllStatuses()
	names := make([]string, 0, len(statuses))
	for _, status := range statuses {
		names = append(names, string(status))
	}
	return names
}
