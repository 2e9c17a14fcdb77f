package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/skyloader/internal/ingest"
	"github.com/dvloznov/skyloader/internal/loader"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Load every file in the inbox and relocate it",
		Args:  cobra.NoArgs,
		RunE:  runIngest,
	}
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	l, err := loader.New(s.cfg.Database, s.run.Logger)
	if err != nil {
		return fmt.Errorf("runIngest: %w", err)
	}
	defer func() {
		if err := l.Close(); err != nil {
			s.run.Logger.Warn().Err(err).Msg("Failed to close database connection")
		}
	}()

	o := ingest.New(s.run, s.drive, l)
	if err := o.ConfigureFolders(ctx); err != nil {
		return fmt.Errorf("runIngest: %w", err)
	}

	summary, runErr := o.ProcessFiles(ctx)
	if runErr != nil {
		s.run.Logger.Error().Err(runErr).Msg("Run aborted")
	}

	// The log upload still happens after an interrupt so the drive keeps a
	// record of what was processed.
	shipErr := o.ShipLogs(context.WithoutCancel(ctx))

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d files, %d archived, %d errored, %d skipped\n",
		s.run.RunID, summary.Total, summary.Archived, summary.Errored, summary.Skipped)

	return errors.Join(runErr, shipErr)
}
