package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/skyloader/internal/datafile"
	"github.com/dvloznov/skyloader/internal/drive"
	"github.com/dvloznov/skyloader/internal/loader"
	"github.com/dvloznov/skyloader/internal/logger"
	"github.com/dvloznov/skyloader/internal/tabular"
)

// Metadata columns added to every loaded row.
const (
	RunIDColumn    = "run_id"
	LoadedAtColumn = "loaded_at"
)

// Step is one stage of processing a single file.
type Step interface {
	Name() string
	Execute(ctx context.Context, df *datafile.DataFile) error
}

// FetchStep downloads and parses the file unless it already has a payload.
type FetchStep struct {
	Drive drive.Drive
}

func (s *FetchStep) Name() string { return "fetch" }

func (s *FetchStep) Execute(ctx context.Context, df *datafile.DataFile) error {
	if df.Data != nil {
		return nil
	}
	return drive.Fetch(ctx, s.Drive, df)
}

// StampMetadataStep adds run_id and loaded_at to every row of the payload.
type StampMetadataStep struct {
	RunID string
	Now   func() time.Time
}

func (s *StampMetadataStep) Name() string { return "stamp metadata" }

func (s *StampMetadataStep) Execute(ctx context.Context, df *datafile.DataFile) error {
	if df.Data == nil {
		log := logger.FromContext(ctx)
		log.Warn().Str("file", df.Name).Msg("No data to stamp, skipping metadata")
		return nil
	}
	df.Data.SetColumn(RunIDColumn, tabular.Text, s.RunID)
	df.Data.SetColumn(LoadedAtColumn, tabular.Timestamp, s.Now())
	return nil
}

// LoadStep hands the file to the destination loader.
type LoadStep struct {
	Loader loader.Loader
}

func (s *LoadStep) Name() string { return "load" }

func (s *LoadStep) Execute(ctx context.Context, df *datafile.DataFile) error {
	return s.Loader.Load(ctx, df)
}

// Pipeline runs steps in order and stops at the first failure.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs every step on df. Steps log through the logger carried by ctx.
func (p *Pipeline) Execute(ctx context.Context, df *datafile.DataFile) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		log.Debug().Str("step", step.Name()).Msg("Running step")
		if err := step.Execute(ctx, df); err != nil {
			return fmt.Errorf("step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}
