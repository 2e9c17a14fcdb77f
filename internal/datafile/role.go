package datafile

import "strings"

// Role is the job a folder plays in a run.
type Role int

const (
	RoleNone Role = iota
	RoleInbox
	RoleArchive
	RoleError
	RoleLogs
)

// Roles lists every folder role in resolution order.
var Roles = []Role{RoleInbox, RoleArchive, RoleError, RoleLogs}

var roleFolderNames = map[Role]string{
	RoleInbox:   "Inbox",
	RoleArchive: "Archive",
	RoleError:   "Error",
	RoleLogs:    "Log",
}

// FolderName is the literal folder name matched for the role.
func (r Role) FolderName() string {
	return roleFolderNames[r]
}

func (r Role) String() string {
	switch r {
	case RoleInbox:
		return "inbox"
	case RoleArchive:
		return "archive"
	case RoleError:
		return "error"
	case RoleLogs:
		return "logs"
	}
	return "none"
}

// Role returns the role matched by the entry's name, or RoleNone.
func (f *DataFile) Role() Role {
	for _, r := range Roles {
		if f.hasRole(r) {
			return r
		}
	}
	return RoleNone
}

func (f *DataFile) hasRole(r Role) bool {
	return strings.EqualFold(f.Name, r.FolderName())
}

func (f *DataFile) IsInbox() bool   { return f.hasRole(RoleInbox) }
func (f *DataFile) IsArchive() bool { return f.hasRole(RoleArchive) }
func (f *DataFile) IsError() bool   { return f.hasRole(RoleError) }
func (f *DataFile) IsLogs() bool    { return f.hasRole(RoleLogs) }
