package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/identity-service/identity-service/internal/db/models"
)

// fileEntry is the JSON-lines shape of an audit entry.
type fileEntry struct {
	Timestamp      time.Time              `json:"timestamp"`
	ID             string                 `json:"id"`
	Action         string                 `json:"action"`
	UserID         string                 `json:"user_id,omitempty"`
	OrganisationID string                 `json:"organisation_id,omitempty"`
	ResourceType   string                 `json:"resource_type,omitempty"`
	ResourceID     string                 `json:"resource_id,omitempty"`
	IPAddress      string                 `json:"ip_address,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// FileSink appends entries to a file, one JSON object per line.
type FileSink struct {
	file *os.File
	mu   sync.Mutex
}

// NewFileSink opens path for appending, creating it if needed.
func NewFileSink(path string) (*FileSink, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &FileSink{file: file}, nil
}

// Write appends entry as a single line.
func (s *FileSink) Write(entry *models.AuditLog) error {
	data, err := json.Marshal(fileEntry{
		Timestamp:      entry.CreatedAt,
		ID:             entry.ID,
		Action:         entry.Action,
		UserID:         deref(entry.UserID),
		OrganisationID: deref(entry.OrganisationID),
		ResourceType:   deref(entry.ResourceType),
		ResourceID:     deref(entry.ResourceID),
		IPAddress:      deref(entry.IPAddress),
		Metadata:       entry.Metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// Close closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
