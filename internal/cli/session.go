package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/skyloader/internal/config"
	"github.com/dvloznov/skyloader/internal/drive"
	"github.com/dvloznov/skyloader/internal/ingest"
	"github.com/dvloznov/skyloader/internal/logger"
)

// session is what every subcommand starts from: the loaded config, a run
// context and an open drive.
type session struct {
	cfg   *config.Config
	run   *ingest.RunContext
	drive drive.Drive
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(getConfigFlag(cmd))
	if err != nil {
		return nil, err
	}

	level := logger.ParseLevel(cfg.LogLevel)
	if getVerboseFlag(cmd) {
		level = zerolog.DebugLevel
	}
	run := ingest.NewRunContext(time.Now(), cmd.ErrOrStderr(), level)
	run.Logger.Info().Fields(cfg.Redacted()).Msg("Starting skyloader")

	d, err := drive.New(cfg.Drive, run.Logger)
	if err != nil {
		return nil, fmt.Errorf("openSession: %w", err)
	}
	return &session{cfg: cfg, run: run, drive: d}, nil
}

// folders resolves the role folders without any loading pipeline attached.
func (s *session) folders(ctx context.Context) (ingest.Folders, error) {
	o := ingest.NewWithPipeline(s.run, s.drive, ingest.NewPipeline())
	if err := o.ConfigureFolders(ctx); err != nil {
		return ingest.Folders{}, err
	}
	return o.Folders(), nil
}

func (s *session) close() {
	if err := s.drive.Close(); err != nil {
		s.run.Logger.Warn().Err(err).Msg("Failed to close drive")
	}
}
