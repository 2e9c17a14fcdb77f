package drive

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dvloznov/skyloader/internal/config"
	"github.com/dvloznov/skyloader/internal/datafile"
	"github.com/dvloznov/skyloader/internal/tabular"
)

const gdriveFileFields = "id, name, kind, mimeType, createdTime, modifiedTime, parents"

// GoogleDrive talks to Drive v3 with a service account, including shared drives.
type GoogleDrive struct {
	rootID string
	opts   []option.ClientOption
	log    zerolog.Logger

	svc *gdrive.Service
}

// NewGoogleDrive returns a Drive v3 client rooted at cfg.RootFolderID. The
// service is authenticated on first use.
func NewGoogleDrive(cfg config.Drive, log zerolog.Logger) *GoogleDrive {
	opts := []option.ClientOption{option.WithScopes(gdrive.DriveScope)}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return &GoogleDrive{
		rootID: cfg.RootFolderID,
		opts:   opts,
		log:    log.With().Str("drive", "gdrive").Logger(),
	}
}

func (d *GoogleDrive) service(ctx context.Context) (*gdrive.Service, error) {
	if d.svc != nil {
		return d.svc, nil
	}
	svc, err := gdrive.NewService(ctx, d.opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	d.svc = svc
	return svc, nil
}

func (d *GoogleDrive) Root() *datafile.DataFile {
	return datafile.NewFolder(d.rootID, "root")
}

func (d *GoogleDrive) List(ctx context.Context, folderID string) ([]*datafile.DataFile, error) {
	svc, err := d.service(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	var files []*datafile.DataFile
	call := svc.Files.List().
		Q(parentQuery(folderID)).
		Fields(googleapi.Field("nextPageToken, files(" + gdriveFileFields + ")")).
		Corpora("allDrives").
		IncludeItemsFromAllDrives(true).
		SupportsAllDrives(true)
	err = call.Pages(ctx, func(page *gdrive.FileList) error {
		for _, f := range page.Files {
			df, err := datafile.New(driveFileMetadata(f))
			if err != nil {
				return err
			}
			files = append(files, df)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("List: folder %s: %w", folderID, err)
	}
	sortByModified(files)
	return files, nil
}

// parentQuery selects the non-trashed children of folderID.
func parentQuery(folderID string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(folderID)
	return fmt.Sprintf("'%s' in parents and trashed = false", escaped)
}

func driveFileMetadata(f *gdrive.File) datafile.Metadata {
	return datafile.Metadata{
		ID:           f.Id,
		Name:         f.Name,
		Kind:         f.Kind,
		MimeType:     f.MimeType,
		CreatedTime:  f.CreatedTime,
		ModifiedTime: f.ModifiedTime,
		Parents:      f.Parents,
	}
}

func (d *GoogleDrive) Open(ctx context.Context, df *datafile.DataFile) (io.ReadCloser, error) {
	svc, err := d.service(ctx)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}

	if df.MimeType == tabular.MimeGoogleSheet {
		resp, err := svc.Files.Export(df.ID, tabular.MimeXLSX).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("Open: exporting %s: %w", df.Name, err)
		}
		return resp.Body, nil
	}

	resp, err := svc.Files.Get(df.ID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("Open: downloading %s: %w", df.Name, err)
	}
	return resp.Body, nil
}

func (d *GoogleDrive) MoveAndRename(ctx context.Context, fileID, newParentID, newName string) error {
	svc, err := d.service(ctx)
	if err != nil {
		return fmt.Errorf("MoveAndRename: %w", err)
	}

	current, err := svc.Files.Get(fileID).Fields("parents").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("MoveAndRename: reading parents of %s: %w", fileID, err)
	}

	call := svc.Files.Update(fileID, &gdrive.File{Name: newName}).
		Fields("id, name, parents").
		SupportsAllDrives(true)
	if !slices.Contains(current.Parents, newParentID) {
		call = call.AddParents(newParentID).RemoveParents(strings.Join(current.Parents, ","))
	}
	if _, err := call.Context(ctx).Do(); err != nil {
		return fmt.Errorf("MoveAndRename: updating %s: %w", fileID, err)
	}
	d.log.Debug().Str("file_id", fileID).Str("parent", newParentID).Str("name", newName).Msg("Moved file")
	return nil
}

func (d *GoogleDrive) Upload(ctx context.Context, r io.Reader, name, parentID string) error {
	svc, err := d.service(ctx)
	if err != nil {
		return fmt.Errorf("Upload: %w", err)
	}
	_, err = svc.Files.Create(&gdrive.File{Name: name, Parents: []string{parentID}}).
		Media(r, googleapi.ContentType("text/plain")).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("Upload: %s: %w", name, err)
	}
	return nil
}

func (d *GoogleDrive) Close() error { return nil }
