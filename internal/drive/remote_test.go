package drive

import (
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gdrive "google.golang.org/api/drive/v3"

	"github.com/dvloznov/skyloader/internal/datafile"
)

func TestParentQuery(t *testing.T) {
	assert.Equal(t, "'abc123' in parents and trashed = false", parentQuery("abc123"))
	assert.Equal(t, `'it\'s' in parents and trashed = false`, parentQuery("it's"))
}

func TestDriveFileMetadata(t *testing.T) {
	md := driveFileMetadata(&gdrive.File{
		Id:           "1x",
		Name:         "Inbox",
		Kind:         "drive#file",
		MimeType:     datafile.FolderMimeType,
		CreatedTime:  "2022-01-01T00:00:00.000Z",
		ModifiedTime: "2022-01-02T00:00:00.000Z",
		Parents:      []string{"root"},
	})
	df, err := datafile.New(md)
	require.NoError(t, err)
	assert.True(t, df.IsInbox())
	assert.True(t, df.IsFolder())
	assert.Equal(t, []string{"root"}, df.Parents)
}

func TestFolderPrefix(t *testing.T) {
	assert.Equal(t, "", folderPrefix(""))
	assert.Equal(t, "", folderPrefix("/"))
	assert.Equal(t, "drop/", folderPrefix("drop"))
	assert.Equal(t, "drop/Inbox/", folderPrefix("/drop/Inbox/"))
}

func TestObjectMetadata(t *testing.T) {
	updated := time.Date(2023, 5, 6, 7, 8, 9, 123_000_000, time.UTC)
	obj, err := datafile.New(objectMetadata("drop/Inbox/", &storage.ObjectAttrs{
		Name:        "drop/Inbox/sales.csv",
		ContentType: "text/csv",
		Created:     updated.Add(-time.Hour),
		Updated:     updated,
	}))
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", obj.Name)
	assert.Equal(t, "drop/Inbox/sales.csv", obj.ID)
	assert.Equal(t, updated, obj.ModifiedAt)
	assert.True(t, obj.IsFile())

	folder, err := datafile.New(objectMetadata("drop/", &storage.ObjectAttrs{Prefix: "drop/Archive/"}))
	require.NoError(t, err)
	assert.Equal(t, "Archive", folder.Name)
	assert.Equal(t, "drop/Archive/", folder.ID)
	assert.True(t, folder.IsArchive())
	assert.True(t, folder.IsFolder())
}
