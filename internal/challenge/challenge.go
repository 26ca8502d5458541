// Package challenge loads the coding challenges and grades submissions against their test cases in the sandbox.
package challenge

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// CatalogFile is the challenge catalog path inside the content directory.
const CatalogFile = "challenges.yaml"

// ErrInvalidCatalog is wrapped by LoadCatalog when the authored challenges fail validation.
var ErrInvalidCatalog = errors.New("challenge: invalid catalog")

// TestCase is one input/expectation pair. Input holds the positional arguments of the function.
type TestCase struct {
	Input    []any `yaml:"input" json:"input"`
	Expected any   `yaml:"expected" json:"expected"`
}

// Challenge is a function the learner implements, graded by its test cases.
type Challenge struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	// Function is the global function the tests call. Defaults to the first function declared in StarterCode.
	Function    string     `yaml:"function" json:"function"`
	StarterCode string     `yaml:"starter_code" json:"starterCode"`
	Tests       []TestCase `yaml:"tests" json:"tests"`
	Solution    string     `yaml:"solution" json:"solution,omitempty"`
	Hint        string     `yaml:"hint" json:"hint,omitempty"`
}

// Category groups challenges of similar topic and difficulty.
type Category struct {
	Key        string      `yaml:"key" json:"key"`
	Title      string      `yaml:"title" json:"title"`
	Icon       string      `yaml:"icon" json:"icon"`
	Difficulty string      `yaml:"difficulty" json:"difficulty"`
	Challenges []Challenge `yaml:"challenges" json:"challenges"`
}

// Catalog is the validated set of challenge categories. Read-only after LoadCatalog.
type Catalog struct {
	Categories []Category
	byID       map[string]*Challenge
	categoryOf map[string]*Category
}

var funcDecl = regexp.MustCompile(`(?:function\s+([A-Za-z_$][\w$]*)\s*\(|(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:function\b|\(|[A-Za-z_$][\w$]*\s*=>))`)

// FunctionName returns the first function declared in code, or "".
func FunctionName(code string) string {
	m := funcDecl.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

type catalogDoc struct {
	Categories []Category `yaml:"categories"`
}

// LoadCatalog reads challenges.yaml from fsys and validates it. All problems are reported together.
func LoadCatalog(fsys fs.FS) (*Catalog, error) {
	raw, err := fs.ReadFile(fsys, CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("challenge: read %s: %w", CatalogFile, err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog parses and validates a YAML challenge catalog.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("challenge: parse %s: %w", CatalogFile, err)
	}
	cat := &Catalog{
		Categories: doc.Categories,
		byID:       make(map[string]*Challenge),
		categoryOf: make(map[string]*Category),
	}
	var problems *multierror.Error
	keys := make(map[string]bool)
	for ci := range cat.Categories {
		c := &cat.Categories[ci]
		if c.Key == "" {
			problems = multierror.Append(problems, fmt.Errorf("category #%d: missing key", ci+1))
		} else if keys[c.Key] {
			problems = multierror.Append(problems, fmt.Errorf("category %q: duplicate key", c.Key))
		}
		keys[c.Key] = true
		for i := range c.Challenges {
			ch := &c.Challenges[i]
			if ch.ID == "" {
				problems = multierror.Append(problems, fmt.Errorf("category %q challenge #%d: missing id", c.Key, i+1))
				continue
			}
			if _, dup := cat.byID[ch.ID]; dup {
				problems = multierror.Append(problems, fmt.Errorf("challenge %q: duplicate id", ch.ID))
				continue
			}
			if ch.Function == "" {
				ch.Function = FunctionName(ch.StarterCode)
			}
			if ch.Function == "" {
				problems = multierror.Append(problems, fmt.Errorf("challenge %q: no function name and none declared in starter code", ch.ID))
			}
			if len(ch.Tests) == 0 {
				problems = multierror.Append(problems, fmt.Errorf("challenge %q: needs at least one test", ch.ID))
			}
			if strings.TrimSpace(ch.Title) == "" {
				problems = multierror.Append(problems, fmt.Errorf("challenge %q: missing title", ch.ID))
			}
			for ti, tc := range ch.Tests {
				if tc.Input == nil {
					ch.Tests[ti].Input = []any{}
				}
			}
			cat.byID[ch.ID] = ch
			cat.categoryOf[ch.ID] = c
		}
	}
	if err := problems.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return cat, nil
}

// Challenge returns the challenge with id and its category.
func (c *Catalog) Challenge(id string) (*Challenge, *Category, bool) {
	ch, ok := c.byID[id]
	if !ok {
		return nil, nil, false
	}
	return ch, c.categoryOf[id], true
}

// All returns every challenge in catalog order.
func (c *Catalog) All() []*Challenge {
	var out []*Challenge
	for ci := range c.Categories {
		for i := range c.Categories[ci].Challenges {
			out = append(out, &c.Categories[ci].Challenges[i])
		}
	}
	return out
}

// Total returns the number of challenges.
func (c *Catalog) Total() int {
	return len(c.byID)
}

// Progress returns the percentage (0-100) of challenges present in completed.
func (c *Catalog) Progress(completed []string) float64 {
	if len(c.byID) == 0 {
		return 0
	}
	seen := make(map[string]bool, len(completed))
	n := 0
	for _, id := range completed {
		if _, ok := c.byID[id]; ok && !seen[id] {
			seen[id] = true
			n++
		}
	}
	return float64(n) / float64(len(c.byID)) * 100
}
