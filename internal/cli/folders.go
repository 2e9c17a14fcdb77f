package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dvloznov/skyloader/internal/datafile"
)

func newFoldersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "Print which folder serves as inbox, archive, error and log folder",
		Args:  cobra.NoArgs,
		RunE:  runFolders,
	}
}

func runFolders(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	folders, err := s.folders(cmd.Context())
	if err != nil {
		return fmt.Errorf("runFolders: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROLE\tFOLDER\tID")
	for _, role := range datafile.Roles {
		f := folders.Get(role)
		name := f.Name
		if folders.IsRoot(role) {
			name = "(root)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", role, name, f.ID)
	}
	return w.Flush()
}
