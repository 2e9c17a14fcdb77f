package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/skyloader/internal/datafile"
)

const (
	localRootID = "."
	localKind   = "local#file"
)

// Local serves a directory tree. Ids are slash separated paths relative to
// the root directory; dotfiles are not listed.
type Local struct {
	dir string
	log zerolog.Logger
}

// NewLocal returns a drive rooted at dir, which must exist.
func NewLocal(dir string, log zerolog.Logger) (*Local, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("NewLocal: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("NewLocal: %s is not a directory", dir)
	}
	return &Local{dir: dir, log: log.With().Str("drive", "local").Logger()}, nil
}

func (l *Local) Root() *datafile.DataFile {
	return datafile.NewFolder(localRootID, filepath.Base(l.dir))
}

// resolve maps an id to a path on disk, rejecting ids that leave the root.
func (l *Local) resolve(id string) (string, error) {
	rel := path.Clean(filepath.ToSlash(id))
	if rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return "", fmt.Errorf("id %q escapes the drive root", id)
	}
	return filepath.Join(l.dir, filepath.FromSlash(rel)), nil
}

func (l *Local) List(ctx context.Context, folderID string) ([]*datafile.DataFile, error) {
	dir, err := l.resolve(folderID)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("List: reading %s: %w", folderID, err)
	}

	files := make([]*datafile.DataFile, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("List: stat %s: %w", e.Name(), err)
		}
		df, err := datafile.New(localMetadata(folderID, info))
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		files = append(files, df)
	}
	sortByModified(files)
	return files, nil
}

func localMetadata(folderID string, info fs.FileInfo) datafile.Metadata {
	mimeType := datafile.FolderMimeType
	if !info.IsDir() {
		mimeType = localMimeType(info.Name())
	}
	modified := datafile.FormatTime(info.ModTime())
	return datafile.Metadata{
		ID:           path.Join(folderID, info.Name()),
		Name:         info.Name(),
		Kind:         localKind,
		MimeType:     mimeType,
		CreatedTime:  modified,
		ModifiedTime: modified,
		Parents:      []string{folderID},
	}
}

func localMimeType(name string) string {
	t := mime.TypeByExtension(filepath.Ext(name))
	if t == "" {
		return "application/octet-stream"
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}

func (l *Local) Open(ctx context.Context, df *datafile.DataFile) (io.ReadCloser, error) {
	p, err := l.resolve(df.ID)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	return f, nil
}

func (l *Local) MoveAndRename(ctx context.Context, fileID, newParentID, newName string) error {
	src, err := l.resolve(fileID)
	if err != nil {
		return fmt.Errorf("MoveAndRename: %w", err)
	}
	dst, err := l.resolve(path.Join(newParentID, newName))
	if err != nil {
		return fmt.Errorf("MoveAndRename: %w", err)
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("MoveAndRename: %s already exists", path.Join(newParentID, newName))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("MoveAndRename: %w", err)
	}

	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("MoveAndRename: %w", err)
	}
	l.log.Debug().Str("from", fileID).Str("to", path.Join(newParentID, newName)).Msg("Moved file")
	return nil
}

// Upload writes to a hidden temp file first so a partial upload is never listed.
func (l *Local) Upload(ctx context.Context, r io.Reader, name, parentID string) error {
	dir, err := l.resolve(parentID)
	if err != nil {
		return fmt.Errorf("Upload: %w", err)
	}
	tmp := filepath.Join(dir, ".upload-"+uuid.NewString())
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("Upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("Upload: writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("Upload: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("Upload: %w", err)
	}
	return nil
}

func (l *Local) Close() error { return nil }
