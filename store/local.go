package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/meetmind/meetmind/errors"
	"github.com/meetmind/meetmind/logger"
	"github.com/meetmind/meetmind/meeting"
)

// LocalStore writes finished sessions to a directory: one JSON record per
// session, plus an optional markdown export.
type LocalStore struct {
	dir            string
	exportMarkdown bool
	log            *logger.Logger
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir string, exportMarkdown bool) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("create store dir %s: %w", dir, err))
	}
	return &LocalStore{
		dir:            dir,
		exportMarkdown: exportMarkdown,
		log:            logger.WithComponent("store"),
	}, nil
}

// Save writes the session record as <id>.json and, when enabled, <id>.md.
func (s *LocalStore) Save(ctx context.Context, rec meeting.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return apperrors.Internal(fmt.Errorf("marshal session %s: %w", rec.ID, err))
	}

	jsonPath := filepath.Join(s.dir, rec.ID+".json")
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return apperrors.Internal(fmt.Errorf("write %s: %w", jsonPath, err))
	}

	if s.exportMarkdown {
		mdPath := filepath.Join(s.dir, rec.ID+".md")
		if err := os.WriteFile(mdPath, []byte(RenderMarkdown(rec)), 0o644); err != nil {
			return apperrors.Internal(fmt.Errorf("write %s: %w", mdPath, err))
		}
	}

	s.log.Info("session saved", logger.Fields(
		logger.FieldMeetingID, rec.ID,
		logger.FieldSegments, len(rec.Segments),
		"insights", len(rec.Insights),
		"markdown", s.exportMarkdown,
	))
	return nil
}

// Load reads a previously saved session record.
func (s *LocalStore) Load(ctx context.Context, id string) (meeting.Record, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return meeting.Record{}, apperrors.NotFound("meeting", id)
		}
		return meeting.Record{}, apperrors.Internal(err)
	}

	var rec meeting.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return meeting.Record{}, apperrors.Internal(fmt.Errorf("decode session %s: %w", id, err))
	}
	return rec, nil
}

// List returns the IDs of all saved sessions.
func (s *LocalStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); filepath.Ext(name) == ".json" {
			ids = append(ids, name[:len(name)-len(".json")])
		}
	}
	return ids, nil
}
