package ingest

import "time"

// Status is where a file stands in the current run.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusArchived Status = "archived"
	StatusErrored  Status = "errored"
	StatusSkipped  Status = "skipped"
)

// Entry records what happened to one inbox entry.
type Entry struct {
	FileID      string
	Name        string
	Status      Status
	Destination string
	Rows        int
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Summary counts outcomes of a run.
type Summary struct {
	Total    int
	Archived int
	Errored  int
	Skipped  int
}

// Ledger keeps per-file outcomes for the duration of a run, in the order
// files were seen.
type Ledger struct {
	entries []*Entry
	byID    map[string]*Entry
}

func NewLedger() *Ledger {
	return &Ledger{byID: make(map[string]*Entry)}
}

// Track registers a file as pending and returns its entry. Tracking the same
// id again returns the existing entry.
func (l *Ledger) Track(fileID, name string) *Entry {
	if e, ok := l.byID[fileID]; ok {
		return e
	}
	e := &Entry{FileID: fileID, Name: name, Status: StatusPending}
	l.entries = append(l.entries, e)
	l.byID[fileID] = e
	return e
}

// Get returns the entry for fileID, if tracked.
func (l *Ledger) Get(fileID string) (Entry, bool) {
	e, ok := l.byID[fileID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns a copy of all entries in tracking order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = *e
	}
	return out
}

func (l *Ledger) Summary() Summary {
	s := Summary{Total: len(l.entries)}
	for _, e := range l.entries {
		switch e.Status {
		case StatusArchived:
			s.Archived++
		case StatusErrored:
			s.Errored++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}
