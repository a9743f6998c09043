package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/lingobot/internal/database"
	"github.com/example/lingobot/internal/session"
	"github.com/example/lingobot/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath     string // Path to the Excel or CSV file
	LearningPath string // Learning path the words belong to, e.g. "en-de"
	SheetName    string // Name of the sheet to import (Excel only)
	StartRow     int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SheetName: "Sheet1",
		StartRow:  2, // skip the header row
	}
}

// Columns: A = term, B = translation, C = example, D = frequency rank.

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

// Importer loads vocabulary files into the word repository.
type Importer struct {
	words *database.WordRepository
}

// NewImporter creates an importer over the given repository.
func NewImporter(words *database.WordRepository) *Importer {
	return &Importer{words: words}
}

// ImportWords imports words from an Excel or CSV file.
func (im *Importer) ImportWords(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	if !models.ValidLearningPath(config.LearningPath) {
		return nil, fmt.Errorf("invalid learning path %q", config.LearningPath)
	}

	ext := strings.ToLower(filepath.Ext(config.FilePath))
	if ext == ".csv" {
		return im.importFromCSV(ctx, config)
	}
	return im.importFromExcel(ctx, config)
}

// importFromExcel imports words from an Excel file
func (im *Importer) importFromExcel(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %v", err)
	}

	result := &ImportResult{}
	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		result.TotalProcessed++
		if err := im.processRow(ctx, row, config.LearningPath, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}
	return result, nil
}

// importFromCSV imports words from a CSV file
func (im *Importer) importFromCSV(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	result := &ImportResult{}
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %v", err)
		}
		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		result.TotalProcessed++
		if err := im.processRow(ctx, row, config.LearningPath, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}
	return result, nil
}

// processRow upserts one vocabulary row by (term, learning path).
func (im *Importer) processRow(ctx context.Context, row []string, learningPath string, result *ImportResult) error {
	if len(row) < 2 {
		result.Skipped++
		return nil
	}

	term := strings.TrimSpace(row[0])
	translation := strings.TrimSpace(row[1])
	if term == "" || translation == "" {
		result.Skipped++
		return nil
	}

	example := ""
	if len(row) > 2 {
		example = strings.TrimSpace(row[2])
	}
	rank := 0
	if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(row[3]))
		if err != nil {
			return fmt.Errorf("invalid frequency rank %q", row[3])
		}
		rank = parsed
	}

	existing, err := im.words.GetByTerm(ctx, term, learningPath)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return err
	}

	if existing != nil {
		existing.Translation = translation
		existing.Example = example
		existing.FrequencyRank = rank
		if err := im.words.Update(ctx, existing); err != nil {
			return err
		}
		result.Updated++
		return nil
	}

	word := &models.Word{
		LearningPath:  learningPath,
		Term:          term,
		Translation:   translation,
		Example:       example,
		FrequencyRank: rank,
	}
	if err := im.words.Create(ctx, word); err != nil {
		return err
	}
	result.Created++
	return nil
}
