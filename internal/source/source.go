package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/quizbot/internal/excel"
	"github.com/example/quizbot/internal/logger"
	"github.com/example/quizbot/pkg/models"
)

// ErrLoadFailure marks every failure to obtain the question bank
var ErrLoadFailure = errors.New("failed to load questions")

// maxPayload caps how much of a remote question bank is read
const maxPayload = 10 << 20

// Fetcher loads the question bank
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.Question, error)
}

// QuestionLister reads the stored question bank
type QuestionLister interface {
	GetAll(ctx context.Context) ([]models.Question, error)
}

// New picks a fetcher for location: "db" reads the database, http(s) URLs are
// fetched over the network, .xlsx and .csv files are read as spreadsheets and
// everything else as a JSON file.
func New(location string, repo QuestionLister, log *logger.Logger) Fetcher {
	if log == nil {
		log = logger.Nop()
	}
	lower := strings.ToLower(location)
	switch {
	case lower == "db":
		return &Database{Repo: repo, log: log}
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return &HTTP{URL: location, Client: &http.Client{Timeout: 15 * time.Second}, log: log}
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".csv"):
		config := excel.DefaultImportConfig()
		config.FilePath = location
		return &Spreadsheet{Config: config, log: log}
	default:
		return &File{Path: location, log: log}
	}
}

func loadFailure(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLoadFailure, what, err)
}

// File reads a JSON question bank from disk
type File struct {
	Path string
	log  *logger.Logger
}

func (f *File) Fetch(ctx context.Context) ([]models.Question, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, loadFailure("read "+filepath.Base(f.Path), err)
	}
	return decodeLogged(data, f.Path, f.log)
}

// HTTP downloads a JSON question bank
type HTTP struct {
	URL    string
	Client *http.Client
	log    *logger.Logger
}

func (h *HTTP) Fetch(ctx context.Context) ([]models.Question, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, loadFailure("build request", err)
	}
	req.Header.Set("Accept", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, loadFailure("GET "+h.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, loadFailure("GET "+h.URL, fmt.Errorf("HTTP %d", resp.StatusCode))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return nil, loadFailure("read body", err)
	}
	return decodeLogged(data, h.URL, h.log)
}

// Spreadsheet reads questions from an Excel or CSV file
type Spreadsheet struct {
	Config excel.ImportConfig
	log    *logger.Logger
}

func (s *Spreadsheet) Fetch(ctx context.Context) ([]models.Question, error) {
	result, err := excel.ReadQuestions(s.Config)
	if err != nil {
		return nil, loadFailure("read "+filepath.Base(s.Config.FilePath), err)
	}
	if result.Skipped > 0 {
		s.log.Warn("skipped invalid spreadsheet rows", "file", s.Config.FilePath, "skipped", result.Skipped, "errors", result.Errors)
	}
	return result.Questions, nil
}

// Database reads the question bank stored by an import
type Database struct {
	Repo QuestionLister
	log  *logger.Logger
}

func (d *Database) Fetch(ctx context.Context) ([]models.Question, error) {
	if d.Repo == nil {
		return nil, loadFailure("database", errors.New("no question repository configured"))
	}
	questions, err := d.Repo.GetAll(ctx)
	if err != nil {
		return nil, loadFailure("database", err)
	}
	return questions, nil
}

func decodeLogged(data []byte, origin string, log *logger.Logger) ([]models.Question, error) {
	questions, dropped, err := Decode(data)
	if err != nil {
		return nil, loadFailure(origin, err)
	}
	if dropped > 0 {
		log.Warn("dropped invalid questions", "source", origin, "dropped", dropped)
	}
	return questions, nil
}
