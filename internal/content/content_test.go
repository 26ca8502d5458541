package content

import (
	"errors"
	"math"
	"strings"
	"testing"
	"testing/fstest"
)

const pathsYAML = `paths:
  - key: fundamentals
    title: JavaScript Fundamentals
    icon: SparkleIcon
    description: Master the building blocks of JavaScript
    estimated_time: 3-4 weeks
    modules: [variables-types, control-flow, functions-basics]
  - key: asynchronous
    title: Async Programming
    modules: [callbacks, promises]
`

const variablesYAML = `id: variables-types
path: fundamentals
title: Variables and Data Types
duration: 25 min
difficulty: Beginner
overview: Master JavaScript variables and data types.
key_points:
  - Use let for variables that can change, const for constants
example: |
  let age = 25;
  console.log(typeof age);
`

const callbacksYAML = `id: callbacks
path: asynchronous
title: Callbacks
duration: 20 min
difficulty: Intermediate
`

func validFS() fstest.MapFS {
	return fstest.MapFS{
		"paths.yaml":                   {Data: []byte(pathsYAML)},
		"lessons/variables-types.yaml": {Data: []byte(variablesYAML)},
		"lessons/callbacks.yaml":       {Data: []byte(callbacksYAML)},
		"data.json":                    {Data: []byte(`{"message":"Hello from Go!"}`)},
	}
}

func TestLoad_Valid(t *testing.T) {
	cat, err := Load(validFS())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cat.Paths) != 2 {
		t.Fatalf("len(Paths) = %d, want 2", len(cat.Paths))
	}
	if cat.Paths[0].EstimatedTime != "3-4 weeks" {
		t.Errorf("EstimatedTime = %q", cat.Paths[0].EstimatedTime)
	}
	l, ok := cat.Lesson("variables-types")
	if !ok {
		t.Fatal("lesson variables-types missing")
	}
	if l.Difficulty != "Beginner" || len(l.KeyPoints) != 1 {
		t.Errorf("lesson = %+v", l)
	}
	if !strings.Contains(l.Example, "typeof age") {
		t.Errorf("Example = %q", l.Example)
	}
	if string(cat.Data) != `{"message":"Hello from Go!"}` {
		t.Errorf("Data = %s", cat.Data)
	}
	if !cat.Available("callbacks") || cat.Available("promises") {
		t.Error("availability should follow authored lessons")
	}
}

func TestLoad_DataOptional(t *testing.T) {
	fsys := validFS()
	delete(fsys, "data.json")
	cat, err := Load(fsys)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cat.Data != nil {
		t.Errorf("Data = %s, want nil", cat.Data)
	}
}

func TestLoad_MissingPaths(t *testing.T) {
	if _, err := Load(fstest.MapFS{}); err == nil {
		t.Fatal("Load without paths.yaml should fail")
	}
}

func TestLoad_AggregatesProblems(t *testing.T) {
	fsys := fstest.MapFS{
		"paths.yaml": {Data: []byte(`paths:
  - key: dup
    title: One
  - key: dup
    title: ""
`)},
		"lessons/a.yaml": {Data: []byte("id: a\ntitle: A\ndifficulty: Expert\n")},
		"lessons/b.yaml": {Data: []byte("id: b\ndifficulty: Beginner\npath: nowhere\n")},
		"data.json":      {Data: []byte("{not json")},
	}
	_, err := Load(fsys)
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("Load: want ErrInvalidCatalog, got %v", err)
	}
	for _, want := range []string{
		`path "dup": duplicate key`,
		`path "dup": missing title`,
		`lesson "a": difficulty "Expert"`,
		`lesson "b": missing title`,
		`lesson "b": unknown path "nowhere"`,
		"data.json: invalid JSON",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestLoad_DuplicateLessonID(t *testing.T) {
	fsys := validFS()
	fsys["lessons/zz-copy.yaml"] = &fstest.MapFile{Data: []byte(variablesYAML)}
	_, err := Load(fsys)
	if err == nil || !strings.Contains(err.Error(), `duplicate lesson id "variables-types"`) {
		t.Fatalf("Load duplicate: got %v", err)
	}
}

func TestLoad_IDFromFileName(t *testing.T) {
	fsys := validFS()
	fsys["lessons/control-flow.yaml"] = &fstest.MapFile{Data: []byte("title: Control Flow\ndifficulty: Beginner\npath: fundamentals\n")}
	cat, err := Load(fsys)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := cat.Lesson("control-flow"); !ok {
		t.Error("lesson id should default to the file name")
	}
}

func TestModules(t *testing.T) {
	cat, err := Load(validFS())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	all := cat.AllModules()
	if len(all) != 5 || all[0] != "variables-types" || all[4] != "promises" {
		t.Errorf("AllModules = %v", all)
	}
	if got := cat.ModulesByPath("asynchronous"); len(got) != 2 {
		t.Errorf("ModulesByPath(asynchronous) = %v", got)
	}
	if got := cat.ModulesByPath("unknown"); got == nil || len(got) != 0 {
		t.Errorf("ModulesByPath(unknown) = %#v, want empty slice", got)
	}
}

func TestPathProgress(t *testing.T) {
	cat, err := Load(validFS())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	testCases := []struct {
		name      string
		key       string
		completed []string
		want      float64
	}{
		{"none", "fundamentals", nil, 0},
		{"one of three", "fundamentals", []string{"control-flow"}, 100.0 / 3},
		{"all", "asynchronous", []string{"callbacks", "promises"}, 100},
		{"ignores other paths", "asynchronous", []string{"control-flow"}, 0},
		{"duplicates count once", "asynchronous", []string{"callbacks", "callbacks"}, 50},
		{"unknown path", "nope", []string{"callbacks"}, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cat.PathProgress(tc.key, tc.completed); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("PathProgress = %v, want %v", got, tc.want)
			}
		})
	}
	if got := cat.OverallProgress([]string{"callbacks", "promises", "control-flow"}); got != 60 {
		t.Errorf("OverallProgress = %v, want 60", got)
	}
}

func TestPathProgress_EmptyPath(t *testing.T) {
	cat := &Catalog{Paths: []Path{{Key: "empty", Title: "Empty"}}}
	if got := cat.PathProgress("empty", []string{"x"}); got != 0 {
		t.Errorf("PathProgress(empty) = %v, want 0", got)
	}
	if got := cat.OverallProgress(nil); got != 0 {
		t.Errorf("OverallProgress(empty) = %v, want 0", got)
	}
}

func TestStore_ReloadKeepsPreviousOnFailure(t *testing.T) {
	cat, err := Load(validFS())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := NewStore(cat)

	if err := s.Reload(fstest.MapFS{}); err == nil {
		t.Fatal("Reload of empty fs should fail")
	}
	if s.Catalog() != cat {
		t.Error("failed reload replaced the catalog")
	}

	fsys := validFS()
	fsys["lessons/promises.yaml"] = &fstest.MapFile{Data: []byte("title: Promises\ndifficulty: Intermediate\npath: asynchronous\n")}
	if err := s.Reload(fsys); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !s.Catalog().Available("promises") {
		t.Error("reload did not swap in the new catalog")
	}
	if err := s.Reload(nil); err == nil {
		t.Error("Reload(nil) should fail")
	}
}
