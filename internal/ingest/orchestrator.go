package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/dvloznov/skyloader/internal/datafile"
	"github.com/dvloznov/skyloader/internal/drive"
	"github.com/dvloznov/skyloader/internal/loader"
	"github.com/dvloznov/skyloader/internal/logger"
)

// Relocation kinds.
const (
	KindArchive = "archive"
	KindError   = "error"
)

// ErrInvalidKind is returned for a relocation kind other than archive or error.
var ErrInvalidKind = errors.New("invalid relocation kind")

// Orchestrator runs files from the inbox into the database one at a time.
// A failing file is routed to the error folder and never stops the run;
// drive failures do.
type Orchestrator struct {
	run      *RunContext
	drive    drive.Drive
	pipeline *Pipeline
	folders  Folders
	ledger   *Ledger

	configured bool
}

// New wires an orchestrator with the standard fetch, stamp and load steps.
func New(run *RunContext, d drive.Drive, l loader.Loader) *Orchestrator {
	return NewWithPipeline(run, d, NewPipeline(
		&FetchStep{Drive: d},
		&StampMetadataStep{RunID: run.RunID, Now: run.Now},
		&LoadStep{Loader: l},
	))
}

// NewWithPipeline wires an orchestrator around a custom pipeline.
func NewWithPipeline(run *RunContext, d drive.Drive, p *Pipeline) *Orchestrator {
	return &Orchestrator{
		run:      run,
		drive:    d,
		pipeline: p,
		folders:  Folders{Root: d.Root()},
		ledger:   NewLedger(),
	}
}

func (o *Orchestrator) Folders() Folders { return o.folders }

func (o *Orchestrator) Ledger() *Ledger { return o.ledger }

// ConfigureFolders lists the root folder and resolves the four role folders.
func (o *Orchestrator) ConfigureFolders(ctx context.Context) error {
	root := o.drive.Root()
	o.run.Logger.Debug().Str("root_id", root.ID).Msg("Locating inbox, archive, error and log folders")

	listing, err := o.drive.List(ctx, root.ID)
	if err != nil {
		return fmt.Errorf("ConfigureFolders: listing root: %w", err)
	}
	o.folders = ClassifyFolders(root, listing, o.run.Logger)
	o.configured = true
	return nil
}

// ProcessFiles lists the inbox and processes every entry in order. Only a
// drive failure ends the run early.
func (o *Orchestrator) ProcessFiles(ctx context.Context) (Summary, error) {
	if !o.configured {
		if err := o.ConfigureFolders(ctx); err != nil {
			return Summary{}, err
		}
	}

	inbox := o.folders.Get(datafile.RoleInbox)
	files, err := o.drive.List(ctx, inbox.ID)
	if err != nil {
		return Summary{}, fmt.Errorf("ProcessFiles: listing inbox: %w", err)
	}
	if len(files) == 0 {
		o.run.Logger.Info().Str("inbox_id", inbox.ID).Msg("Inbox is empty, nothing to load")
		return o.ledger.Summary(), nil
	}
	o.run.Logger.Info().Int("entries", len(files)).Msg("Found entries in inbox")

	for _, df := range files {
		if err := ctx.Err(); err != nil {
			return o.ledger.Summary(), fmt.Errorf("ProcessFiles: %w", err)
		}
		if err := o.ProcessDataFile(ctx, df); err != nil {
			return o.ledger.Summary(), err
		}
	}

	summary := o.ledger.Summary()
	o.run.Logger.Info().
		Int("total", summary.Total).
		Int("archived", summary.Archived).
		Int("errored", summary.Errored).
		Int("skipped", summary.Skipped).
		Msg("Run finished")
	return summary, nil
}

// ProcessDataFile loads one inbox entry and relocates it. Folders are skipped.
// Failures of the load pipeline are contained here; the returned error is
// always a relocation failure.
func (o *Orchestrator) ProcessDataFile(ctx context.Context, df *datafile.DataFile) error {
	log := logger.WithFields(o.run.Logger, map[string]interface{}{
		"file":    df.Name,
		"file_id": df.ID,
	})
	ctx = logger.WithContext(ctx, log)
	entry := o.ledger.Track(df.ID, df.Name)

	if df.IsFolder() {
		log.Warn().Msg("Found folder in inbox, skipping")
		entry.Status = StatusSkipped
		return nil
	}

	log.Info().Msg("Now processing")
	df.RunID = o.run.RunID
	entry.Status = StatusRunning
	entry.StartedAt = o.run.Now()

	kind := KindArchive
	if err := o.execute(ctx, df); err != nil {
		log.Error().Err(err).Msg("Processing failed, moving file to error folder")
		entry.Error = err.Error()
		kind = KindError
		if err := df.MarkFail(); err != nil {
			return err
		}
	} else if err := df.MarkSuccess(); err != nil {
		return err
	}
	entry.Rows = df.Processed

	name, err := o.DestinationName(df, kind)
	if err != nil {
		return err
	}
	dest := o.folders.Get(roleForKind(kind))
	if err := o.drive.MoveAndRename(ctx, df.ID, dest.ID, name); err != nil {
		return fmt.Errorf("ProcessDataFile: moving %s to %s: %w", df.Name, kind, err)
	}

	entry.Destination = name
	entry.FinishedAt = o.run.Now()
	entry.Status = StatusArchived
	if kind == KindError {
		entry.Status = StatusErrored
	}
	log.Info().Str("destination", name).Str("folder_id", dest.ID).Msgf("Moved file to %s", kind)
	return nil
}

// execute runs the pipeline, turning a panic into an error carrying the stack.
func (o *Orchestrator) execute(ctx context.Context, df *datafile.DataFile) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing %s: %v\n%s", df.Name, r, debug.Stack())
		}
	}()
	return o.pipeline.Execute(ctx, df)
}

// DestinationName is the name df gets in the archive or error folder. When the
// folder is the root fallback the kind is prefixed so relocated files stay
// distinguishable.
func (o *Orchestrator) DestinationName(df *datafile.DataFile, kind string) (string, error) {
	role := roleForKind(kind)
	if role == datafile.RoleNone {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if o.folders.IsRoot(role) {
		return kind + "-" + df.RunName(), nil
	}
	return df.RunName(), nil
}

func roleForKind(kind string) datafile.Role {
	switch kind {
	case KindArchive:
		return datafile.RoleArchive
	case KindError:
		return datafile.RoleError
	}
	return datafile.RoleNone
}

// ShipLogs uploads the run's log stream to the log folder as <run_id>.logs and
// clears the stream.
func (o *Orchestrator) ShipLogs(ctx context.Context) error {
	logs := o.folders.Get(datafile.RoleLogs)
	name := o.run.RunID + ".logs"
	o.run.Logger.Info().Str("name", name).Str("folder_id", logs.ID).Msg("Uploading run logs")

	payload := bytes.NewReader(o.run.LogStream.Bytes())
	if err := o.drive.Upload(ctx, payload, name, logs.ID); err != nil {
		return fmt.Errorf("ShipLogs: %w", err)
	}
	o.run.LogStream.Reset()
	return nil
}
