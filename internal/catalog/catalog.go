// Package catalog holds the checklist questions asked for each observation type.
//
// The catalog is static, versioned configuration. It is loaded once at startup
// (from the embedded questions.yaml unless an override file is given) and is
// never mutated afterwards, so a *Catalog is safe for concurrent use.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultYAML []byte

// Common errors
var (
	ErrEmptyCatalog      = errors.New("catalog has no categories")
	ErrDuplicateCategory = errors.New("duplicate category")
	ErrInvalidQuestion   = errors.New("question needs an id and a label")
)

// Question is one checklist item
type Question struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

// Category is an observation type with its ordered questions
type Category struct {
	Name      string     `yaml:"name" json:"name"`
	Questions []Question `yaml:"questions" json:"questions"`
}

type file struct {
	Version    int        `yaml:"version"`
	Categories []Category `yaml:"categories"`
}

// Catalog maps observation types to their ordered questions
type Catalog struct {
	version    int
	categories []Category
	byName     map[string]int
	labels     map[string]string
	all        []Question
}

// NormalizeKey is the single normalisation applied to question ids before lookup
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Default returns the catalog embedded in the binary
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadFile reads a catalog from a YAML file
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load reads a catalog from YAML
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML bytes
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Version, f.Categories)
}

// New builds a catalog from categories. When the same question id appears in
// several categories the first label wins.
func New(version int, categories []Category) (*Catalog, error) {
	if len(categories) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		version:    version,
		categories: make([]Category, 0, len(categories)),
		byName:     make(map[string]int, len(categories)),
		labels:     make(map[string]string),
	}

	for _, cat := range categories {
		if _, dup := c.byName[cat.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, cat.Name)
		}

		questions := make([]Question, 0, len(cat.Questions))
		for _, q := range cat.Questions {
			if strings.TrimSpace(q.ID) == "" || strings.TrimSpace(q.Label) == "" {
				return nil, fmt.Errorf("%w (category %s)", ErrInvalidQuestion, cat.Name)
			}
			questions = append(questions, q)

			key := NormalizeKey(q.ID)
			if _, seen := c.labels[key]; !seen {
				c.labels[key] = q.Label
				c.all = append(c.all, q)
			}
		}

		c.byName[cat.Name] = len(c.categories)
		c.categories = append(c.categories, Category{Name: cat.Name, Questions: questions})
	}

	return c, nil
}

// Version returns the catalog version
func (c *Catalog) Version() int {
	return c.version
}

// Categories returns the category names in catalog order
func (c *Catalog) Categories() []string {
	names := make([]string, len(c.categories))
	for i, cat := range c.categories {
		names[i] = cat.Name
	}
	return names
}

// Questions returns the ordered questions of a category
func (c *Catalog) Questions(category string) []Question {
	idx, ok := c.byName[category]
	if !ok {
		return nil
	}
	return append([]Question(nil), c.categories[idx].Questions...)
}

// All returns every distinct question, deduplicated by id, in catalog order
func (c *Catalog) All() []Question {
	return append([]Question(nil), c.all...)
}

// Lookup resolves a checklist key to its label
func (c *Catalog) Lookup(key string) (string, bool) {
	label, ok := c.labels[NormalizeKey(key)]
	return label, ok
}

// Label resolves a checklist key to its label, falling back to the raw key
func (c *Catalog) Label(key string) string {
	if label, ok := c.Lookup(key); ok {
		return label
	}
	return key
}

// Snapshot is the JSON shape served to clients
type Snapshot struct {
	Version    int        `json:"version"`
	Categories []Category `json:"categories"`
}

// Snapshot returns a copy of the catalog suitable for serialisation
func (c *Catalog) Snapshot() Snapshot {
	cats := make([]Category, len(c.categories))
	for i, cat := range c.categories {
		cats[i] = Category{Name: cat.Name, Questions: append([]Question(nil), cat.Questions...)}
	}
	return Snapshot{Version: c.version, Categories: cats}
}
