package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dvloznov/skyloader/internal/datafile"
	"github.com/dvloznov/skyloader/internal/drive"
	"github.com/dvloznov/skyloader/internal/schema"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Download the inbox and print the table each file would create",
		Long: `inspect downloads every file in the inbox, infers its column types and prints
the target table with the SQL types of the configured backend. Nothing is
loaded and nothing is moved.`,
		Args: cobra.NoArgs,
		RunE: runInspect,
	}
}

func runInspect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	dialect, err := schema.Lookup(s.cfg.Database.Backend)
	if err != nil {
		return fmt.Errorf("runInspect: %w", err)
	}

	folders, err := s.folders(ctx)
	if err != nil {
		return fmt.Errorf("runInspect: %w", err)
	}
	files, err := drive.ListAndDownload(ctx, s.drive, folders.Get(datafile.RoleInbox).ID)
	if err != nil {
		return fmt.Errorf("runInspect: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, "Inbox is empty")
		return nil
	}
	for _, df := range files {
		if df.IsFolder() {
			fmt.Fprintf(out, "%s (folder, skipped)\n\n", df.Name)
			continue
		}
		columns, err := dialect.Infer(df.Data)
		if err != nil {
			return fmt.Errorf("runInspect: %s: %w", df.Name, err)
		}

		fmt.Fprintf(out, "%s -> %s.%s (%d rows)\n", df.Name, s.cfg.Database.Schema, df.TableName(), df.Data.NumRows())
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  COLUMN\tTYPE\tSQL TYPE")
		for i, c := range columns {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", c.Name, df.Data.Columns[i].Type, c.SQLType)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return nil
}
