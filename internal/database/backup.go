package database

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/example/lingobot/pkg/models"
)

// ProgressBackup is the interchange envelope for exported progress records.
// The record schema itself is the stable format; the envelope adds the
// version and provenance needed to restore safely.
type ProgressBackup struct {
	SchemaVersion int                     `json:"schema_version"`
	LearningPath  string                  `json:"learning_path"`
	ExportedAt    time.Time               `json:"exported_at"`
	Records       []models.ProgressRecord `json:"records"`
}

// ExportProgress writes all progress records for a learning path as JSON.
func (r *ProgressRepository) ExportProgress(ctx context.Context, learningPath string, w io.Writer) error {
	records, err := r.GetAll(ctx, learningPath)
	if err != nil {
		return err
	}
	backup := ProgressBackup{
		SchemaVersion: models.ProgressSchemaVersion,
		LearningPath:  learningPath,
		ExportedAt:    time.Now(),
		Records:       records,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode progress backup: %v", err)
	}
	return nil
}

// RestoreProgress reads a backup and upserts every record it contains.
// Records are normalized and validated one by one; a record that fails
// validation even after normalization aborts the restore.
func (r *ProgressRepository) RestoreProgress(ctx context.Context, reader io.Reader) (int, error) {
	var backup ProgressBackup
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return 0, fmt.Errorf("failed to decode progress backup: %v", err)
	}
	if backup.SchemaVersion > models.ProgressSchemaVersion {
		return 0, fmt.Errorf("backup schema version %d is newer than supported %d",
			backup.SchemaVersion, models.ProgressSchemaVersion)
	}

	restored := 0
	for i := range backup.Records {
		record := backup.Records[i]
		record.Normalize()
		if err := record.Validate(); err != nil {
			return restored, fmt.Errorf("backup record %d rejected: %v", i, err)
		}
		if err := r.Put(ctx, &record); err != nil {
			return restored, err
		}
		restored++
	}
	return restored, nil
}
