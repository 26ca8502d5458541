package playground

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsacademy/backend/internal/sandbox"
)

func TestBundle_NoHTML(t *testing.T) {
	_, err := Bundle(map[string]File{"app.js": {Content: "1"}})
	assert.ErrorIs(t, err, ErrNoHTML)
}

func TestBundle_FragmentBuildsFullDocument(t *testing.T) {
	doc, err := Bundle(map[string]File{
		"index.html": {Content: "<h1>Hi</h1>"},
		"b.css":      {Content: "h1 { color: red; }"},
		"a.css":      {Content: "body { margin: 0; }"},
		"app.js":     {Content: "console.log('ready')"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, "<h1>Hi</h1>")
	assert.Less(t, strings.Index(doc, "/* a.css */"), strings.Index(doc, "/* b.css */"))
	assert.Contains(t, doc, "// app.js\nconsole.log('ready')")
	assert.Contains(t, doc, "sendToParent(method, args)")
}

func TestBundle_FullDocumentInjection(t *testing.T) {
	html := "<!DOCTYPE html><html><head><title>t</title></head><body><p>x</p></body></html>"
	doc, err := Bundle(map[string]File{
		"page.html": {Content: html},
		"s.css":     {Content: "p{}"},
		"m.js":      {Content: "run()"},
	})
	require.NoError(t, err)
	assert.Less(t, strings.Index(doc, "<style>"), strings.Index(doc, "</head>"))
	assert.Less(t, strings.Index(doc, "<script>"), strings.Index(doc, "</body>"))
	assert.Contains(t, doc, "run()")
}

func TestBundle_ExistingTagsAreLeftAlone(t *testing.T) {
	html := "<html><head><style>a{}</style></head><body><script>x()</script></body></html>"
	doc, err := Bundle(map[string]File{
		"index.html": {Content: html},
		"s.css":      {Content: "p{}"},
		"m.js":       {Content: "y()"},
	})
	require.NoError(t, err)
	assert.Equal(t, html, doc)
}

func TestBundle_PrefersIndexHTML(t *testing.T) {
	doc, err := Bundle(map[string]File{
		"about.html": {Content: "<p>about</p>"},
		"index.html": {Content: "<p>home</p>"},
	})
	require.NoError(t, err)
	assert.Contains(t, doc, "home")
	assert.NotContains(t, doc, "about")
}

func TestRunner_Run(t *testing.T) {
	r := NewRunner(sandbox.New())
	ctx := context.Background()

	out, err := r.Run(ctx, "JavaScript", `console.log("hi")`)
	require.NoError(t, err)
	assert.Equal(t, LangJavaScript, out.Language)
	require.Len(t, out.Result.Logs, 1)
	assert.Equal(t, "hi", out.Result.Logs[0].Text)

	out, err = r.Run(ctx, "html", "<p>x</p>")
	require.NoError(t, err)
	assert.Contains(t, out.HTML, "<p>x</p>")

	out, err = r.Run(ctx, "css", "p { color: blue; }")
	require.NoError(t, err)
	assert.Contains(t, out.HTML, "/* style.css */")
}

func TestRunner_UnsupportedLanguage(t *testing.T) {
	r := NewRunner(sandbox.New())
	_, err := r.Run(context.Background(), "ruby", "puts 1")
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.Equal(t, "ruby execution is not supported in the browser. Only HTML, CSS, and JavaScript can run client-side.", err.Error())

	_, err = r.Run(context.Background(), "python", "print(1)")
	var ule *UnsupportedLanguageError
	require.True(t, errors.As(err, &ule))
	assert.Equal(t, "Python execution requires additional setup", err.Error())
}
