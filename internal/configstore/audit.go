package configstore

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	perrors "printquote/pkg/errors"
)

// AuditRecord is one append-only trail entry. Records are never mutated or
// deleted by this package.
type AuditRecord struct {
	ID     uuid.UUID `json:"id"`
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
}

func (s *Store) auditPath() string {
	return filepath.Join(filepath.Dir(s.path), "audit.log")
}

// appendAudit adds one record to the newline-delimited JSON trail.
// Failures are logged and swallowed; they never block the canonical write.
func (s *Store) appendAudit(actor, action string) {
	rec := AuditRecord{
		ID:     uuid.New(),
		At:     time.Now().UTC(),
		Actor:  actor,
		Action: action,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		s.log.Warn().Err(err).Msg("audit: encode failed")
		return
	}
	f, err := os.OpenFile(s.auditPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.log.Warn().Err(err).Msg("audit: open failed")
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		s.log.Warn().Err(err).Msg("audit: append failed")
	}
}

// TailAudit returns the last n audit records, oldest first. Malformed lines
// are skipped.
func (s *Store) TailAudit(n int) ([]AuditRecord, error) {
	f, err := os.Open(s.auditPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, perrors.Newf(perrors.ErrCodeConfigIO, "open audit log: %v", err)
	}
	defer f.Close()

	var records []AuditRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec AuditRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, perrors.Newf(perrors.ErrCodeConfigIO, "read audit log: %v", err)
	}
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}
