// Package drive lists, downloads, relocates and uploads files on the storage
// the loader watches: Google Drive, a Cloud Storage bucket or a local
// directory tree.
package drive

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"

	"github.com/dvloznov/skyloader/internal/config"
	"github.com/dvloznov/skyloader/internal/datafile"
	"github.com/dvloznov/skyloader/internal/tabular"
)

// Drive is the storage a run reads from and relocates into.
type Drive interface {
	// Root is the top folder holding Inbox, Archive, Error and Log.
	Root() *datafile.DataFile

	// List returns the entries directly inside folderID, oldest modification first.
	List(ctx context.Context, folderID string) ([]*datafile.DataFile, error)

	// Open streams the content of a file. Spreadsheets native to the drive
	// are exported as xlsx.
	Open(ctx context.Context, df *datafile.DataFile) (io.ReadCloser, error)

	// MoveAndRename puts a file into newParentID under newName.
	MoveAndRename(ctx context.Context, fileID, newParentID, newName string) error

	// Upload stores the content of r as a new file named name in parentID.
	Upload(ctx context.Context, r io.Reader, name, parentID string) error

	Close() error
}

// New returns the drive for the configured provider. Remote sessions are
// opened on first use.
func New(cfg config.Drive, log zerolog.Logger) (Drive, error) {
	switch cfg.Provider {
	case config.ProviderGDrive:
		return NewGoogleDrive(cfg, log), nil
	case config.ProviderGCS:
		return NewGCS(cfg, log), nil
	case config.ProviderLocal:
		return NewLocal(cfg.Path, log)
	}
	return nil, fmt.Errorf("drive.New: unknown provider %q", cfg.Provider)
}

// Fetch downloads df and parses it into df.Data.
func Fetch(ctx context.Context, d Drive, df *datafile.DataFile) error {
	rc, err := d.Open(ctx, df)
	if err != nil {
		return fmt.Errorf("Fetch: opening %s: %w", df.Name, err)
	}
	defer rc.Close()

	tbl, err := tabular.Parse(df.Name, df.MimeType, rc)
	if err != nil {
		return fmt.Errorf("Fetch: parsing %s: %w", df.Name, err)
	}
	df.Data = tbl
	return nil
}

// ListAndDownload lists folderID and fetches every file in it. Folder entries
// are returned without payload.
func ListAndDownload(ctx context.Context, d Drive, folderID string) ([]*datafile.DataFile, error) {
	files, err := d.List(ctx, folderID)
	if err != nil {
		return nil, err
	}
	for _, df := range files {
		if df.IsFolder() {
			continue
		}
		if err := Fetch(ctx, d, df); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func sortByModified(files []*datafile.DataFile) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModifiedAt.Before(files[j].ModifiedAt)
	})
}
