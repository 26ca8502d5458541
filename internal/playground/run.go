package playground

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jsacademy/backend/internal/sandbox"
)

// ErrUnsupportedLanguage is matched by errors.Is for every language the playground cannot run.
var ErrUnsupportedLanguage = errors.New("playground: unsupported language")

// UnsupportedLanguageError names the language that cannot be run.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	if strings.EqualFold(e.Language, "python") {
		return "Python execution requires additional setup"
	}
	return fmt.Sprintf("%s execution is not supported in the browser. Only HTML, CSS, and JavaScript can run client-side.", e.Language)
}

func (e *UnsupportedLanguageError) Unwrap() error { return ErrUnsupportedLanguage }

// Languages the playground runs.
const (
	LangJavaScript = "javascript"
	LangHTML       = "html"
	LangCSS        = "css"
)

// Executor runs JavaScript; *sandbox.Runner implements it.
type Executor interface {
	Run(ctx context.Context, source string) (*sandbox.Result, error)
}

// Output is the result of a playground run: console output for JavaScript, a document for HTML and CSS.
type Output struct {
	Language string          `json:"language"`
	Result   *sandbox.Result `json:"result,omitempty"`
	HTML     string          `json:"html,omitempty"`
}

// Runner dispatches playground code by language.
type Runner struct {
	exec Executor
}

// NewRunner returns a playground Runner executing JavaScript with exec.
func NewRunner(exec Executor) *Runner {
	return &Runner{exec: exec}
}

// Run executes code written in language. JavaScript runs in the sandbox; HTML and CSS are bundled into a document.
func (r *Runner) Run(ctx context.Context, language, code string) (*Output, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	switch lang {
	case LangJavaScript, "js":
		res, err := r.exec.Run(ctx, code)
		if err != nil {
			return nil, err
		}
		return &Output{Language: LangJavaScript, Result: res}, nil
	case LangHTML:
		doc, err := Bundle(map[string]File{"index.html": {Content: code}})
		if err != nil {
			return nil, err
		}
		return &Output{Language: LangHTML, HTML: doc}, nil
	case LangCSS:
		doc, err := Bundle(map[string]File{"index.html": {}, "style.css": {Content: code}})
		if err != nil {
			return nil, err
		}
		return &Output{Language: LangCSS, HTML: doc}, nil
	default:
		return nil, &UnsupportedLanguageError{Language: language}
	}
}
