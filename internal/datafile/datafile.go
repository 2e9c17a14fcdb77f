// Package datafile models one entry discovered on the drive: its metadata,
// the table parsed from it and the state of its trip through a run.
package datafile

import (
	"errors"
	"fmt"
	"iter"
	"path"
	"strings"
	"time"

	"github.com/dvloznov/skyloader/internal/tabular"
)

// TimeLayout is the drive wire format for created/modified timestamps.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FolderMimeType marks folder entries.
const FolderMimeType = "application/vnd.google-apps.folder"

// ErrMalformedTimestamp is returned when a created/modified value does not
// match TimeLayout.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// Metadata is the listing information a drive returns for an entry.
type Metadata struct {
	ID           string
	Name         string
	Kind         string
	MimeType     string
	CreatedTime  string
	ModifiedTime string
	Parents      []string
}

// DataFile is a drive entry plus its parsed payload and processing state.
type DataFile struct {
	ID         string
	Name       string
	Kind       string
	MimeType   string
	CreatedAt  time.Time
	ModifiedAt time.Time
	Parents    []string

	// Data is nil until the file is fetched.
	Data *tabular.Table

	RunID     string
	Processed int
	Success   bool
	Fail      bool
}

// New builds a DataFile from listing metadata. Both timestamps must parse.
func New(md Metadata) (*DataFile, error) {
	created, err := ParseTime(md.CreatedTime)
	if err != nil {
		return nil, fmt.Errorf("datafile.New: createdTime of %q: %w", md.Name, err)
	}
	modified, err := ParseTime(md.ModifiedTime)
	if err != nil {
		return nil, fmt.Errorf("datafile.New: modifiedTime of %q: %w", md.Name, err)
	}
	return &DataFile{
		ID:         md.ID,
		Name:       md.Name,
		Kind:       md.Kind,
		MimeType:   md.MimeType,
		CreatedAt:  created,
		ModifiedAt: modified,
		Parents:    append([]string(nil), md.Parents...),
	}, nil
}

// NewFolder builds a folder entry that was not listed, such as a drive root.
func NewFolder(id, name string) *DataFile {
	return &DataFile{ID: id, Name: name, Kind: "drive#file", MimeType: FolderMimeType}
}

// ParseTime parses a drive timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}
	return t, nil
}

// FormatTime renders t in the drive wire format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func (f *DataFile) String() string {
	return fmt.Sprintf("DataFile(%s, id=%s)", f.Name, f.ID)
}

// IsFolder reports whether the entry is a folder.
func (f *DataFile) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

func (f *DataFile) IsFile() bool {
	return !f.IsFolder()
}

// Suffix is the last extension of Name including the dot, or "".
func (f *DataFile) Suffix() string {
	ext := path.Ext(f.Name)
	if ext == f.Name || ext == "." {
		// dotfile such as ".env", or a bare trailing dot
		return ""
	}
	return ext
}

// Stem is Name without Suffix.
func (f *DataFile) Stem() string {
	return strings.TrimSuffix(f.Name, f.Suffix())
}

// RunName is the name the file gets once relocated: stem-runid.suffix.
func (f *DataFile) RunName() string {
	return f.Stem() + "-" + f.RunID + f.Suffix()
}

// TableName is the destination table for the file.
func (f *DataFile) TableName() string {
	return f.Stem()
}

// MarkSuccess records a successful load. It fails if an outcome is already set.
func (f *DataFile) MarkSuccess() error {
	if f.Success || f.Fail {
		return fmt.Errorf("MarkSuccess: %s: outcome already recorded", f.Name)
	}
	f.Success = true
	return nil
}

// MarkFail records a failed load. It fails if an outcome is already set.
func (f *DataFile) MarkFail() error {
	if f.Success || f.Fail {
		return fmt.Errorf("MarkFail: %s: outcome already recorded", f.Name)
	}
	f.Fail = true
	return nil
}

// Records yields the payload rows in column order with null cells as nil.
// Processed is incremented for every row handed out.
func (f *DataFile) Records() iter.Seq[[]any] {
	return func(yield func([]any) bool) {
		if f.Data == nil {
			return
		}
		for _, row := range f.Data.Rows {
			f.Processed++
			if !yield(tabular.NormalizeRow(row)) {
				return
			}
		}
	}
}
