// Package reportfs keeps dated reports on disk as Headlines/YYYY-MM/YYYY-MM-DD.{json,md}.
package reportfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/report"
)

var (
	// ErrNotFound is returned for a missing report or article.
	ErrNotFound = errors.New("not found")
	// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date")
)

const (
	dateLayout = "2006-01-02"
	rawSuffix  = ".raw.json"
)

// Entry is one report in a listing.
type Entry struct {
	Date    string         `json:"date"`
	Path    string         `json:"path"`
	Summary models.Summary `json:"summary"`
}

// Store reads and writes reports under a root directory.
type Store struct {
	root string
	mu   sync.Mutex
}

// New returns a store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the directory the store writes to.
func (s *Store) Root() string {
	return s.root
}

// Paths returns the JSON and Markdown paths for date.
func (s *Store) Paths(date string) (jsonPath, mdPath string, err error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	base := filepath.Join(s.root, date[:7], date)
	return base + ".json", base + ".md", nil
}

// List returns every report newest first. A missing root is an empty list.
func (s *Store) List() ([]Entry, error) {
	months, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read reports dir: %w", err)
	}

	entries := []Entry{}
	for _, month := range months {
		if !month.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.root, month.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", month.Name(), err)
		}
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, rawSuffix) {
				continue
			}
			r, err := readReport(filepath.Join(s.root, month.Name(), name))
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{
				Date:    r.Date,
				Path:    month.Name() + "/" + name,
				Summary: r.Summary,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date > entries[j].Date
	})
	return entries, nil
}

// Load returns the report for date.
func (s *Store) Load(date string) (models.Report, error) {
	jsonPath, _, err := s.Paths(date)
	if err != nil {
		return models.Report{}, err
	}
	return readReport(jsonPath)
}

// Save writes r as JSON and Markdown.
func (s *Store) Save(r models.Report) error {
	jsonPath, mdPath, err := s.Paths(r.Date)
	if err != nil {
		return err
	}

	data, err := report.EncodeJSON(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFile(jsonPath, data); err != nil {
		return err
	}
	return writeFile(mdPath, []byte(report.RenderMarkdown(r)))
}

// SetChecked updates one article's checked flag in the JSON report and, when
// present, the Markdown checkbox so a later conversion keeps the change.
func (s *Store) SetChecked(date, id string, checked bool) error {
	jsonPath, mdPath, err := s.Paths(date)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := readReport(jsonPath)
	if err != nil {
		return err
	}
	i := r.ArticleByID(id)
	if i < 0 {
		return fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	r.Articles[i].Checked = checked

	data, err := report.EncodeJSON(r)
	if err != nil {
		return err
	}
	if err := writeFile(jsonPath, data); err != nil {
		return err
	}

	md, err := os.ReadFile(mdPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read markdown: %w", err)
	}
	updated, ok := report.SetChecked(string(md), r.Articles[i].URL, checked)
	if !ok || updated == string(md) {
		return nil
	}
	return writeFile(mdPath, []byte(updated))
}

// Convert parses the Markdown report at mdPath and writes the sibling .json.
// An existing .json is merged with the parsed report so fields the Markdown
// does not carry survive; an unreadable one is replaced.
func (s *Store) Convert(mdPath string) (models.Report, []report.Warning, error) {
	text, err := os.ReadFile(mdPath)
	if err != nil {
		return models.Report{}, nil, fmt.Errorf("read markdown: %w", err)
	}
	res := report.Parse(string(text))

	s.mu.Lock()
	defer s.mu.Unlock()

	jsonPath := strings.TrimSuffix(mdPath, filepath.Ext(mdPath)) + ".json"
	r := res.Report
	if prev, err := readReport(jsonPath); err == nil {
		r = report.Merge(prev, r)
	}

	data, err := report.EncodeJSON(r)
	if err != nil {
		return models.Report{}, nil, err
	}
	if err := writeFile(jsonPath, data); err != nil {
		return models.Report{}, nil, err
	}
	return r, res.Warnings, nil
}

// RawPath returns where SaveRaw writes the snapshot for date.
func (s *Store) RawPath(date string) (string, error) {
	jsonPath, _, err := s.Paths(date)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(jsonPath, ".json") + rawSuffix, nil
}

// SaveRaw stores the normalized, not yet curated articles of a collection run.
func (s *Store) SaveRaw(date string, articles []models.Article) (string, error) {
	path, err := s.RawPath(date)
	if err != nil {
		return "", err
	}

	if articles == nil {
		articles = []models.Article{}
	}
	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode articles: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return path, writeFile(path, data)
}

// PruneRaw deletes raw snapshots dated before cutoff and returns how many
// were removed. Curated reports are never touched.
func (s *Store) PruneRaw(cutoff time.Time) (int, error) {
	months, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read reports dir: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keepFrom := cutoff.Format(dateLayout)
	removed := 0
	for _, month := range months {
		if !month.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, month.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return removed, fmt.Errorf("read %s: %w", month.Name(), err)
		}
		for _, f := range files {
			date, ok := strings.CutSuffix(f.Name(), rawSuffix)
			if f.IsDir() || !ok {
				continue
			}
			if _, err := time.Parse(dateLayout, date); err != nil || date >= keepFrom {
				continue
			}
			if err := os.Remove(filepath.Join(dir, f.Name())); err != nil {
				return removed, fmt.Errorf("remove %s: %w", f.Name(), err)
			}
			removed++
		}
	}
	return removed, nil
}

// LoadRaw reads articles written by SaveRaw from path.
func LoadRaw(path string) ([]models.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read raw articles: %w", err)
	}
	var articles []models.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("decode raw articles: %w", err)
	}
	return articles, nil
}

func readReport(path string) (models.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Report{}, fmt.Errorf("report %s: %w", filepath.Base(path), ErrNotFound)
		}
		return models.Report{}, fmt.Errorf("read report: %w", err)
	}
	r, err := report.DecodeJSON(data)
	if err != nil {
		return models.Report{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return r, nil
}

// writeFile replaces path atomically so readers never see a partial report.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
