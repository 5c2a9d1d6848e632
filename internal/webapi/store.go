package webapi

import (
	"errors"
	"io/fs"

	"github.com/dbwizard/dbwizard/internal/session"
)

// SessionStore provides read access to session audit logs.
type SessionStore interface {
	// ListSessions returns summaries for all sessions, newest first.
	ListSessions() ([]SessionSummary, error)
	// GetSession returns the full audit trail of one session. A short
	// session id prefix is enough to match. Returns session.ErrNotFound
	// when no log matches.
	GetSession(id string) (*SessionDetail, error)
}

// FileStore reads session logs from a directory. An empty or missing
// directory is an empty store, not an error.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore over the given log directory.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) ListSessions() ([]SessionSummary, error) {
	if s.dir == "" {
		return []SessionSummary{}, nil
	}

	files, err := session.List(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []SessionSummary{}, nil
		}
		return nil, err
	}

	summaries := make([]SessionSummary, 0, len(files))
	for _, f := range files {
		summaries = append(summaries, SessionSummary{
			SessionID:  f.SessionID,
			Name:       f.Name,
			Size:       f.Size,
			ModTime:    f.ModTime,
			NumRecords: f.NumRecords,
			Compacted:  f.Compacted,
		})
	}
	return summaries, nil
}

func (s *FileStore) GetSession(id string) (*SessionDetail, error) {
	if s.dir == "" {
		return nil, session.ErrNotFound
	}

	file, err := session.Find(s.dir, id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}

	records, err := session.ReadRecords(file.Path)
	if err != nil {
		return nil, err
	}
	return &SessionDetail{SessionID: file.SessionID, Records: records}, nil
}
