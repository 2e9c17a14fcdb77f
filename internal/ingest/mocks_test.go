package ingest

import (
	"context"
	"io"
	"strings"

	"github.com/dvloznov/skyloader/internal/datafile"
)

// MockDrive is an in-memory drive. Contents maps file ids to CSV bodies.
type MockDrive struct {
	RootFolder *datafile.DataFile
	Listings   map[string][]*datafile.DataFile
	Contents   map[string]string

	ListFunc          func(ctx context.Context, folderID string) ([]*datafile.DataFile, error)
	MoveAndRenameFunc func(ctx context.Context, fileID, newParentID, newName string) error

	Moves   []Move
	Uploads map[string]string
}

// Move is one recorded MoveAndRename call.
type Move struct {
	FileID   string
	ParentID string
	Name     string
}

func (m *MockDrive) Root() *datafile.DataFile {
	if m.RootFolder == nil {
		m.RootFolder = datafile.NewFolder("root", "root")
	}
	return m.RootFolder
}

func (m *MockDrive) List(ctx context.Context, folderID string) ([]*datafile.DataFile, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, folderID)
	}
	return m.Listings[folderID], nil
}

func (m *MockDrive) Open(ctx context.Context, df *datafile.DataFile) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(m.Contents[df.ID])), nil
}

func (m *MockDrive) MoveAndRename(ctx context.Context, fileID, newParentID, newName string) error {
	if m.MoveAndRenameFunc != nil {
		if err := m.MoveAndRenameFunc(ctx, fileID, newParentID, newName); err != nil {
			return err
		}
	}
	m.Moves = append(m.Moves, Move{FileID: fileID, ParentID: newParentID, Name: newName})
	return nil
}

func (m *MockDrive) Upload(ctx context.Context, r io.Reader, name, parentID string) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if m.Uploads == nil {
		m.Uploads = make(map[string]string)
	}
	m.Uploads[parentID+"/"+name] = string(body)
	return nil
}

func (m *MockDrive) Close() error { return nil }

// MockLoader records loaded files. LoadFunc overrides the default success.
type MockLoader struct {
	LoadFunc func(ctx context.Context, df *datafile.DataFile) error
	Loaded   []string
}

func (m *MockLoader) Connect(ctx context.Context) error { return nil }
func (m *MockLoader) Close() error                      { return nil }

func (m *MockLoader) EnsureSchemaExists(ctx context.Context, schema string) error { return nil }

func (m *MockLoader) EnsureTableExists(ctx context.Context, df *datafile.DataFile) error {
	return nil
}

func (m *MockLoader) Load(ctx context.Context, df *datafile.DataFile) error {
	if m.LoadFunc != nil {
		if err := m.LoadFunc(ctx, df); err != nil {
			return err
		}
	}
	for range df.Records() {
	}
	m.Loaded = append(m.Loaded, df.Name)
	return nil
}
