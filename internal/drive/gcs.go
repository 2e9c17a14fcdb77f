package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/dvloznov/skyloader/internal/config"
	"github.com/dvloznov/skyloader/internal/datafile"
)

const gcsKind = "storage#object"

// GCS serves a Cloud Storage bucket. Folders are object name prefixes ending
// in "/"; the root folder id is the configured prefix.
type GCS struct {
	bucket string
	prefix string
	opts   []option.ClientOption
	log    zerolog.Logger

	client *storage.Client
}

// NewGCS returns a bucket drive. With no credentials configured it uses
// Application Default Credentials.
func NewGCS(cfg config.Drive, log zerolog.Logger) *GCS {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return &GCS{
		bucket: cfg.Bucket,
		prefix: folderPrefix(cfg.RootFolderID),
		opts:   opts,
		log:    log.With().Str("drive", "gcs").Str("bucket", cfg.Bucket).Logger(),
	}
}

// folderPrefix normalizes a folder id to "" or "a/b/".
func folderPrefix(id string) string {
	id = strings.Trim(id, "/")
	if id == "" {
		return ""
	}
	return id + "/"
}

func (g *GCS) bucketHandle(ctx context.Context) (*storage.BucketHandle, error) {
	if g.client == nil {
		client, err := storage.NewClient(ctx, g.opts...)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		g.client = client
	}
	return g.client.Bucket(g.bucket), nil
}

func (g *GCS) Root() *datafile.DataFile {
	return datafile.NewFolder(g.prefix, g.bucket)
}

func (g *GCS) List(ctx context.Context, folderID string) ([]*datafile.DataFile, error) {
	bkt, err := g.bucketHandle(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	prefix := folderPrefix(folderID)

	var files []*datafile.DataFile
	it := bkt.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("List: gs://%s/%s: %w", g.bucket, prefix, err)
		}
		if attrs.Name == prefix && attrs.Prefix == "" {
			// folder placeholder object
			continue
		}
		df, err := datafile.New(objectMetadata(prefix, attrs))
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		files = append(files, df)
	}
	sortByModified(files)
	return files, nil
}

// objectMetadata maps a listed object or synthetic prefix entry to drive
// metadata. Prefixes carry no timestamps and sort first.
func objectMetadata(parent string, attrs *storage.ObjectAttrs) datafile.Metadata {
	if attrs.Prefix != "" {
		zero := datafile.FormatTime(time.Time{})
		return datafile.Metadata{
			ID:           attrs.Prefix,
			Name:         path.Base(strings.TrimSuffix(attrs.Prefix, "/")),
			Kind:         gcsKind,
			MimeType:     datafile.FolderMimeType,
			CreatedTime:  zero,
			ModifiedTime: zero,
			Parents:      []string{parent},
		}
	}
	return datafile.Metadata{
		ID:           attrs.Name,
		Name:         path.Base(attrs.Name),
		Kind:         gcsKind,
		MimeType:     attrs.ContentType,
		CreatedTime:  datafile.FormatTime(attrs.Created),
		ModifiedTime: datafile.FormatTime(attrs.Updated),
		Parents:      []string{parent},
	}
}

func (g *GCS) Open(ctx context.Context, df *datafile.DataFile) (io.ReadCloser, error) {
	bkt, err := g.bucketHandle(ctx)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	r, err := bkt.Object(df.ID).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Open: open GCS object reader: %w", err)
	}
	return r, nil
}

func (g *GCS) MoveAndRename(ctx context.Context, fileID, newParentID, newName string) error {
	bkt, err := g.bucketHandle(ctx)
	if err != nil {
		return fmt.Errorf("MoveAndRename: %w", err)
	}
	src := bkt.Object(fileID)
	dstName := folderPrefix(newParentID) + newName
	dst := bkt.Object(dstName).If(storage.Conditions{DoesNotExist: true})

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return fmt.Errorf("MoveAndRename: copy %s to %s: %w", fileID, dstName, err)
	}
	if err := src.Delete(ctx); err != nil {
		return fmt.Errorf("MoveAndRename: delete %s: %w", fileID, err)
	}
	g.log.Debug().Str("from", fileID).Str("to", dstName).Msg("Moved object")
	return nil
}

func (g *GCS) Upload(ctx context.Context, r io.Reader, name, parentID string) error {
	bkt, err := g.bucketHandle(ctx)
	if err != nil {
		return fmt.Errorf("Upload: %w", err)
	}
	w := bkt.Object(folderPrefix(parentID) + name).NewWriter(ctx)
	w.ContentType = "text/plain"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("Upload: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Upload: finalize GCS object: %w", err)
	}
	return nil
}

func (g *GCS) Close() error {
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}
