package reportfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ErrInvalidPath is returned for deep-dive locations outside the store root.
var ErrInvalidPath = errors.New("invalid path")

// deepDiveName matches YYYY-MM-DD_<title>.md.
var deepDiveName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_(.+)\.md$`)

// DeepDive is one long-form write-up in a listing.
type DeepDive struct {
	Filename string `json:"filename"`
	Date     string `json:"date"`
	Title    string `json:"title"`
	// Path is month/filename, the key favorites refer to.
	Path string `json:"path"`
}

// DeepDives reads Markdown write-ups stored as <root>/<month>/YYYY-MM-DD_<title>.md.
type DeepDives struct {
	root string
}

// NewDeepDives returns a reader rooted at dir.
func NewDeepDives(dir string) *DeepDives {
	return &DeepDives{root: dir}
}

// List returns every deep dive, newest date first and by title within a date.
// A missing root is an empty list.
func (d *DeepDives) List() ([]DeepDive, error) {
	months, err := os.ReadDir(d.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []DeepDive{}, nil
		}
		return nil, fmt.Errorf("read deep dives: %w", err)
	}

	out := []DeepDive{}
	for _, m := range months {
		if !m.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(d.root, m.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", m.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			match := deepDiveName.FindStringSubmatch(f.Name())
			if match == nil {
				continue
			}
			out = append(out, DeepDive{
				Filename: f.Name(),
				Date:     match[1],
				Title:    match[2],
				Path:     m.Name() + "/" + f.Name(),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

// Read returns the Markdown body of month/filename.
func (d *DeepDives) Read(month, filename string) (string, error) {
	for _, seg := range []string{month, filename} {
		if !validSegment(seg) {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, seg)
		}
	}
	if !strings.HasSuffix(filename, ".md") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, filename)
	}

	data, err := os.ReadFile(filepath.Join(d.root, month, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("deep dive %s/%s: %w", month, filename, ErrNotFound)
		}
		return "", fmt.Errorf("read deep dive: %w", err)
	}
	return string(data), nil
}

func validSegment(seg string) bool {
	return seg != "" && seg != "." && seg != ".." && !strings.ContainsAny(seg, `/\`)
}
