// Package content loads the learning paths and lessons authored as YAML under content/.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

const (
	pathsFile  = "paths.yaml"
	lessonsDir = "lessons"
	dataFile   = "data.json"
)

// Difficulties lists the accepted lesson difficulty labels.
var Difficulties = []string{"Beginner", "Intermediate", "Advanced"}

// ErrInvalidCatalog is wrapped by Load when the authored content fails validation.
var ErrInvalidCatalog = errors.New("content: invalid catalog")

// Path is a learning path: an ordered list of lesson module IDs.
type Path struct {
	Key           string   `yaml:"key" json:"key"`
	Title         string   `yaml:"title" json:"title"`
	Icon          string   `yaml:"icon" json:"icon"`
	Description   string   `yaml:"description" json:"description"`
	EstimatedTime string   `yaml:"estimated_time" json:"estimatedTime"`
	Modules       []string `yaml:"modules" json:"modules"`
}

// Exercise is a practice question attached to a lesson, with its worked answer.
type Exercise struct {
	Question    string `yaml:"question" json:"question"`
	Solution    string `yaml:"solution" json:"solution"`
	Explanation string `yaml:"explanation" json:"explanation,omitempty"`
}

// Lesson is one module of a learning path.
type Lesson struct {
	ID         string     `yaml:"id" json:"id"`
	Path       string     `yaml:"path" json:"path"`
	Title      string     `yaml:"title" json:"title"`
	Duration   string     `yaml:"duration" json:"duration"`
	Difficulty string     `yaml:"difficulty" json:"difficulty"`
	Overview   string     `yaml:"overview" json:"overview"`
	KeyPoints  []string   `yaml:"key_points" json:"keyPoints"`
	Example    string     `yaml:"example" json:"example"`
	Exercises  []Exercise `yaml:"exercises" json:"exercises,omitempty"`
}

// Catalog is the validated, read-only content set. Share it freely; never mutate it after Load.
type Catalog struct {
	Paths   []Path
	Lessons map[string]*Lesson
	// Data is the sample payload served at /api/data; nil when data.json is absent.
	Data json.RawMessage
}

type pathsDoc struct {
	Paths []Path `yaml:"paths"`
}

// Load reads paths.yaml, lessons/*.yaml and the optional data.json from fsys and validates them.
// All validation problems are reported together in an error wrapping ErrInvalidCatalog.
func Load(fsys fs.FS) (*Catalog, error) {
	raw, err := fs.ReadFile(fsys, pathsFile)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", pathsFile, err)
	}
	var doc pathsDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("content: parse %s: %w", pathsFile, err)
	}

	cat := &Catalog{Paths: doc.Paths, Lessons: make(map[string]*Lesson)}
	var problems *multierror.Error

	files, err := fs.Glob(fsys, path.Join(lessonsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("content: list lessons: %w", err)
	}
	sort.Strings(files)
	for _, name := range files {
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("content: read %s: %w", name, err)
		}
		var l Lesson
		if err := yaml.Unmarshal(b, &l); err != nil {
			problems = multierror.Append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if l.ID == "" {
			l.ID = strings.TrimSuffix(path.Base(name), ".yaml")
		}
		if _, dup := cat.Lessons[l.ID]; dup {
			problems = multierror.Append(problems, fmt.Errorf("%s: duplicate lesson id %q", name, l.ID))
			continue
		}
		lesson := l
		cat.Lessons[l.ID] = &lesson
	}

	if b, err := fs.ReadFile(fsys, dataFile); err == nil {
		if !json.Valid(b) {
			problems = multierror.Append(problems, fmt.Errorf("%s: invalid JSON", dataFile))
		} else {
			cat.Data = json.RawMessage(b)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("content: read %s: %w", dataFile, err)
	}

	if verr := cat.validate(); verr != nil {
		problems = multierror.Append(problems, verr)
	}
	if err := problems.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return cat, nil
}

func (c *Catalog) validate() *multierror.Error {
	var problems *multierror.Error
	keys := make(map[string]bool, len(c.Paths))
	for i, p := range c.Paths {
		if p.Key == "" {
			problems = multierror.Append(problems, fmt.Errorf("path #%d: missing key", i+1))
			continue
		}
		if keys[p.Key] {
			problems = multierror.Append(problems, fmt.Errorf("path %q: duplicate key", p.Key))
		}
		keys[p.Key] = true
		if strings.TrimSpace(p.Title) == "" {
			problems = multierror.Append(problems, fmt.Errorf("path %q: missing title", p.Key))
		}
	}
	ids := make([]string, 0, len(c.Lessons))
	for id := range c.Lessons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		l := c.Lessons[id]
		if strings.TrimSpace(l.Title) == "" {
			problems = multierror.Append(problems, fmt.Errorf("lesson %q: missing title", id))
		}
		if !validDifficulty(l.Difficulty) {
			problems = multierror.Append(problems, fmt.Errorf("lesson %q: difficulty %q not one of %s", id, l.Difficulty, strings.Join(Difficulties, ", ")))
		}
		if l.Path != "" && !keys[l.Path] {
			problems = multierror.Append(problems, fmt.Errorf("lesson %q: unknown path %q", id, l.Path))
		}
	}
	return problems
}

func validDifficulty(d string) bool {
	for _, v := range Difficulties {
		if d == v {
			return true
		}
	}
	return false
}

// AllModules returns every module ID of every path, in path order.
func (c *Catalog) AllModules() []string {
	var out []string
	for _, p := range c.Paths {
		out = append(out, p.Modules...)
	}
	return out
}

// ModulesByPath returns the module IDs of the path, or an empty slice when the key is unknown.
func (c *Catalog) ModulesByPath(key string) []string {
	if p, ok := c.Path(key); ok {
		return p.Modules
	}
	return []string{}
}

// Path returns the path with the given key.
func (c *Catalog) Path(key string) (*Path, bool) {
	for i := range c.Paths {
		if c.Paths[i].Key == key {
			return &c.Paths[i], true
		}
	}
	return nil, false
}

// Lesson returns the authored lesson with the given module ID.
func (c *Catalog) Lesson(id string) (*Lesson, bool) {
	l, ok := c.Lessons[id]
	return l, ok
}

// Available reports whether the module has an authored lesson. Listed modules without one are "coming soon".
func (c *Catalog) Available(id string) bool {
	_, ok := c.Lessons[id]
	return ok
}

// PathProgress returns the percentage (0-100) of the path's modules present in completed.
// Unknown and empty paths report 0.
func (c *Catalog) PathProgress(key string, completed []string) float64 {
	p, ok := c.Path(key)
	if !ok {
		return 0
	}
	return percent(p.Modules, completed)
}

// OverallProgress returns the percentage (0-100) of all modules present in completed.
func (c *Catalog) OverallProgress(completed []string) float64 {
	return percent(c.AllModules(), completed)
}

func percent(modules, completed []string) float64 {
	if len(modules) == 0 {
		return 0
	}
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}
	n := 0
	for _, m := range modules {
		if done[m] {
			n++
		}
	}
	return float64(n) / float64(len(modules)) * 100
}
