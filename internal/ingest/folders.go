package ingest

import (
	"github.com/rs/zerolog"

	"github.com/dvloznov/skyloader/internal/datafile"
)

// Folders is the resolved role → folder mapping of a run. Roles without a
// dedicated folder resolve to Root.
type Folders struct {
	Root  *datafile.DataFile
	Roles map[datafile.Role]*datafile.DataFile
}

// Get returns the folder for role, or Root when none was found.
func (f Folders) Get(role datafile.Role) *datafile.DataFile {
	if folder, ok := f.Roles[role]; ok && folder != nil {
		return folder
	}
	return f.Root
}

// IsRoot reports whether role fell back to the root folder.
func (f Folders) IsRoot(role datafile.Role) bool {
	folder := f.Get(role)
	return folder == nil || f.Root == nil || folder.ID == f.Root.ID
}

// ClassifyFolders assigns the entries of the root listing to roles by name.
// Only folders qualify. When two folders claim a role the later one in
// listing order wins; listings are sorted by modification time, so that is
// the most recently modified one. Missing roles fall back to root.
func ClassifyFolders(root *datafile.DataFile, listing []*datafile.DataFile, log zerolog.Logger) Folders {
	folders := Folders{Root: root, Roles: make(map[datafile.Role]*datafile.DataFile, len(datafile.Roles))}

	for _, entry := range listing {
		if !entry.IsFolder() {
			continue
		}
		role := entry.Role()
		if role == datafile.RoleNone {
			continue
		}
		if prev, ok := folders.Roles[role]; ok {
			log.Warn().
				Str("role", role.String()).
				Str("previous_id", prev.ID).
				Str("folder_id", entry.ID).
				Msg("More than one folder matches role, using the most recently modified")
		}
		folders.Roles[role] = entry
	}

	for _, role := range datafile.Roles {
		if _, ok := folders.Roles[role]; ok {
			continue
		}
		log.Warn().
			Str("role", role.String()).
			Str("root_id", root.ID).
			Msgf("%s not found; using the root folder", role.FolderName())
	}
	return folders
}
