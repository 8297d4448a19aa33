package utils_test

import (
	"reflect"
	"testing"

	"github.com/temirov/amalgam/internal/utils"
)

func TestFormatFileSize(t *testing.T) {
	testCases := []struct {
		name     string
		bytes    int64
		expected string
	}{
		{name: "negative", bytes: -1, expected: "0b"},
		{name: "zero", bytes: 0, expected: "0b"},
		{name: "bytes", bytes: 512, expected: "512b"},
		{name: "one kilobyte", bytes: 1024, expected: "1kb"},
		{name: "fractional kilobyte", bytes: 1536, expected: "1.5kb"},
		{name: "ten megabytes", bytes: 10 * 1024 * 1024, expected: "10mb"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := utils.FormatFileSize(testCase.bytes)
			if result != testCase.expected {
				t.Fatalf("expected %s, got %s", testCase.expected, result)
			}
		})
	}
}

func TestDeduplicatePatterns(t *testing.T) {
	result := utils.DeduplicatePatterns([]string{"*.go", " vendor/ ", "", "*.go", "vendor/"})
	expected := []string{"*.go", "vendor/"}
	if !reflect.DeepEqual(result, expected) {
		t.Fatalf("expected %v, got %v", expected, result)
	}
}

func TestPathFilterExcludes(t *testing.T) {
	t.Parallel()

	filter, filterError := utils.NewPathFilter(nil, []string{"*.log", "node_modules/", "docs/**/*.png", "build"})
	if filterError != nil {
		t.Fatalf("NewPathFilter error: %v", filterError)
	}

	testCases := []struct {
		name        string
		path        string
		isDirectory bool
		expected    bool
	}{
		{name: "basename glob", path: "logs/app.log", expected: true},
		{name: "directory pattern on directory", path: "web/node_modules", isDirectory: true, expected: true},
		{name: "file below excluded directory", path: "web/node_modules/react/index.js", expected: true},
		{name: "directory pattern on file", path: "node_modules", expected: false},
		{name: "anchored double star", path: "docs/img/deep/logo.png", expected: true},
		{name: "anchored pattern elsewhere", path: "assets/logo.png", expected: false},
		{name: "plain name matches directory", path: "build/output.bin", expected: true},
		{name: "unrelated file", path: "cmd/main.go", expected: false},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if result := filter.Excludes(testCase.path, testCase.isDirectory); result != testCase.expected {
				t.Fatalf("Excludes(%q) = %v, expected %v", testCase.path, result, testCase.expected)
			}
		})
	}
}

func TestPathFilterIncludes(t *testing.T) {
	t.Parallel()

	filter, filterError := utils.NewPathFilter([]string{"*.go", "docs/*.md"}, nil)
	if filterError != nil {
		t.Fatalf("NewPathFilter error: %v", filterError)
	}
	if !filter.HasIncludes() {
		t.Fatalf("expected include patterns to be registered")
	}
	if !filter.Includes("internal/tree/tree.go") {
		t.Fatalf("expected go file to be included")
	}
	if !filter.Includes("docs/usage.md") {
		t.Fatalf("expected docs markdown to be included")
	}
	if filter.Includes("docs/nested/usage.md") {
		t.Fatalf("single star must not cross directories")
	}
	if filter.Includes("README.md") {
		t.Fatalf("expected README.md to be filtered out")
	}

	var emptyFilter *utils.PathFilter
	if !emptyFilter.Includes("anything") || emptyFilter.Excludes("anything", false) {
		t.Fatalf("nil filter must accept every path")
	}
}

func TestNewPathFilterRejectsInvalidGlob(t *testing.T) {
	if _, filterError := utils.NewPathFilter([]string{"[unclosed"}, nil); filterError == nil {
		t.Fatalf("expected compile error for invalid glob")
	}
}
