package sandbox

import (
	"strings"
	"unicode/utf8"

	"github.com/dop251/goja"
)

var consoleMethods = []string{"log", "info", "warn", "error", "debug", "table"}

// capture installs a console object that records calls into a Result, bounded by line count, bytes per
// line and total bytes.
type capture struct {
	vm       *goja.Runtime
	res      *Result
	max      int
	maxBytes int
	used     int
}

func (c *capture) install() error {
	console := c.vm.NewObject()
	for _, m := range consoleMethods {
		level := m
		if err := console.Set(level, func(call goja.FunctionCall) goja.Value {
			c.record(level, call.Arguments)
			return goja.Undefined()
		}); err != nil {
			return err
		}
	}
	return c.vm.Set("console", console)
}

func (c *capture) record(level string, args []goja.Value) {
	budget := c.maxBytes - c.used
	if len(c.res.Logs) >= c.max || budget <= 0 {
		c.res.Truncated = true
		return
	}
	if budget > maxLineBytes {
		budget = maxLineBytes
	}
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			if b.Len() >= budget {
				c.res.Truncated = true
				break
			}
			b.WriteByte(' ')
		}
		text, room := formatArg(c.vm, a), budget-b.Len()
		if len(text) > room {
			b.WriteString(truncateUTF8(text, room))
			c.res.Truncated = true
			break
		}
		b.WriteString(text)
	}
	text := b.String()
	c.used += len(text)
	c.res.Logs = append(c.res.Logs, LogLine{Level: level, Text: text})
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// formatArg renders a console argument the way the browser playground does: undefined and null by name,
// objects as indented JSON, everything else through String().
func formatArg(vm *goja.Runtime, v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	}
	if obj, ok := v.(*goja.Object); ok {
		if _, isFn := goja.AssertFunction(obj); !isFn {
			if s, err := stringify(vm, obj, true); err == nil && s != "" {
				return s
			}
		}
	}
	return v.String()
}
