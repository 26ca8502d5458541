// Package playground runs playground code server-side, bundles multi-file projects into one HTML document and keeps shared snippets.
package playground

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoHTML is returned by Bundle when no .html file is present.
var ErrNoHTML = errors.New("playground: no HTML file found")

// File is one playground file.
type File struct {
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// Bundle combines the html, css and js files into a single HTML document. index.html is preferred,
// otherwise the first .html file by name. CSS goes before </head> and JS, wrapped with the console
// interceptor, before </body> when the HTML is a full document; otherwise a full document is generated.
func Bundle(files map[string]File) (string, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	html, ok := files["index.html"]
	if !ok {
		for _, n := range names {
			if strings.HasSuffix(n, ".html") {
				html, ok = files[n], true
				break
			}
		}
	}
	if !ok {
		return "", ErrNoHTML
	}

	var css, js []string
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".css"):
			css = append(css, fmt.Sprintf("/* %s */\n%s", n, files[n].Content))
		case strings.HasSuffix(n, ".js"):
			js = append(js, fmt.Sprintf("// %s\n%s", n, files[n].Content))
		}
	}
	return buildHTML(html.Content, strings.Join(css, "\n\n"), strings.Join(js, "\n\n")), nil
}

func buildHTML(content, css, js string) string {
	if strings.Contains(content, "<!DOCTYPE") || strings.Contains(content, "<html") {
		out := content
		if css != "" && !strings.Contains(content, "<style>") {
			if i := strings.Index(out, "</head>"); i > -1 {
				out = out[:i] + "<style>\n" + css + "\n</style>\n" + out[i:]
			}
		}
		if js != "" && !strings.Contains(content, "<script>") {
			if i := strings.Index(out, "</body>"); i > -1 {
				out = out[:i] + "<script>\n" + WrapJavaScript(js) + "\n</script>\n" + out[i:]
			}
		}
		return out
	}
	return `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <style>
    ` + css + `
  </style>
</head>
<body>
  ` + content + `
  <script>
    ` + WrapJavaScript(js) + `
  </script>
</body>
</html>`
}

// WrapJavaScript wraps code with the console interceptor that forwards console calls and errors to the parent frame.
func WrapJavaScript(code string) string {
	return consolePrelude + code + consoleEpilogue
}

const consolePrelude = `
    // Console interceptor
    const originalConsole = { ...console };

    function sendToParent(method, args) {
      window.parent.postMessage({
        type: 'console',
        method: method,
        args: args.map(arg => {
          if (arg === undefined) return 'undefined';
          if (arg === null) return 'null';
          if (typeof arg === 'object') {
            try {
              return JSON.stringify(arg, null, 2);
            } catch (e) {
              return String(arg);
            }
          }
          return String(arg);
        })
      }, '*');
    }

    ['log', 'error', 'warn', 'info', 'debug', 'table'].forEach(method => {
      console[method] = function(...args) {
        sendToParent(method, args);
        originalConsole[method].apply(console, args);
      };
    });

    window.onerror = function(msg, url, lineNo, columnNo, error) {
      console.error('Error at line ' + lineNo + ': ' + msg);
      return false;
    };

    window.addEventListener('unhandledrejection', function(event) {
      console.error('Unhandled Promise Rejection:', event.reason);
    });

    // User code
    try {
      `

const consoleEpilogue = `
    } catch (error) {
      console.error('Execution Error:', error.message, '\nStack:', error.stack);
    }
  `
