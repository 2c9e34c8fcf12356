package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/quizbot/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath         string // Path to the Excel or CSV file
	QuestionColumn   string // Column with the question text
	OptionsColumn    string // Column with the options, split by OptionSeparator
	CorrectColumn    string // Column with the correct option (1-based)
	PointsColumn     string // Column with the points
	DifficultyColumn string // Column with the difficulty
	OptionSeparator  string
	SheetName        string // Name of the sheet to import, the first sheet when missing
	StartRow         int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		QuestionColumn:   "A",
		OptionsColumn:    "B",
		CorrectColumn:    "C",
		PointsColumn:     "D",
		DifficultyColumn: "E",
		OptionSeparator:  "|",
		SheetName:        "Sheet1",
		StartRow:         2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Imported       int
	Skipped        int
	Errors         []string
	Questions      []models.Question
}

// QuestionStore receives imported questions
type QuestionStore interface {
	ReplaceAll(ctx context.Context, questions []models.Question) error
}

// ReadQuestions reads questions from an Excel or CSV file. Rows that do not
// describe a valid question are skipped and reported in Errors.
func ReadQuestions(config ImportConfig) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		Errors:    make([]string, 0),
		Questions: make([]models.Question, 0, len(rows)),
	}
	for i, row := range rows {
		if i < config.StartRow-1 || isBlank(row) {
			continue
		}
		result.TotalProcessed++

		q, err := parseRow(row, config)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		result.Questions = append(result.Questions, q)
		result.Imported++
	}
	return result, nil
}

// ImportQuestions reads the file and replaces the stored question bank with
// the valid rows. An empty result leaves the store untouched.
func ImportQuestions(ctx context.Context, config ImportConfig, store QuestionStore) (*ImportResult, error) {
	result, err := ReadQuestions(config)
	if err != nil {
		return nil, err
	}
	if len(result.Questions) == 0 {
		return result, fmt.Errorf("no valid questions in %s", config.FilePath)
	}
	if err := store.ReplaceAll(ctx, result.Questions); err != nil {
		return result, fmt.Errorf("failed to store imported questions: %w", err)
	}
	return result, nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	name := sheets[0]
	for _, s := range sheets {
		if s == sheet {
			name = s
			break
		}
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseRow turns a single row into a validated question
func parseRow(row []string, config ImportConfig) (models.Question, error) {
	sep := config.OptionSeparator
	if sep == "" {
		sep = "|"
	}

	var options []string
	for _, opt := range strings.Split(cell(row, config.OptionsColumn), sep) {
		if opt = strings.TrimSpace(opt); opt != "" {
			options = append(options, opt)
		}
	}

	correct, err := strconv.Atoi(cell(row, config.CorrectColumn))
	if err != nil {
		return models.Question{}, fmt.Errorf("invalid correct option %q", cell(row, config.CorrectColumn))
	}
	points, err := strconv.Atoi(cell(row, config.PointsColumn))
	if err != nil {
		return models.Question{}, fmt.Errorf("invalid points %q", cell(row, config.PointsColumn))
	}
	difficulty, ok := models.ParseDifficulty(cell(row, config.DifficultyColumn))
	if !ok {
		return models.Question{}, fmt.Errorf("unknown difficulty %q", cell(row, config.DifficultyColumn))
	}

	q := models.Question{
		Text:          cell(row, config.QuestionColumn),
		Options:       options,
		CorrectOption: correct - 1,
		Points:        points,
		Difficulty:    difficulty,
	}
	if err := q.Validate(); err != nil {
		return models.Question{}, err
	}
	return q, nil
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
