package merge_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/amalgam/internal/merge"
	"github.com/temirov/amalgam/internal/output"
	"github.com/temirov/amalgam/internal/selection"
	"github.com/temirov/amalgam/internal/tree"
	"github.com/temirov/amalgam/internal/types"
)

type mapReader map[string][]byte

func (reader mapReader) ReadBytes(path string) ([]byte, error) {
	data, exists := reader[path]
	if !exists {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	return data, nil
}

type runeCounter struct{}

func (runeCounter) Name() string { return "runes" }

func (runeCounter) CountString(input string) (int, error) { return len([]rune(input)), nil }

type failingRenderer struct {
	handled int
}

func (renderer *failingRenderer) Handle(frame types.Frame) error {
	renderer.handled++
	if renderer.handled == 2 {
		return errors.New("disk full")
	}
	return nil
}

func (renderer *failingRenderer) Flush(summary types.OutputSummary) error {
	return nil
}

func mergeRaw(t *testing.T, engine *merge.Engine, paths []string, reader merge.Reader) (string, types.OutputSummary) {
	t.Helper()
	var buffer bytes.Buffer
	summary, mergeError := engine.Merge(context.Background(), paths, reader, output.NewRawRenderer(&buffer, output.Options{}))
	require.NoError(t, mergeError)
	return buffer.String(), summary
}

func TestMergeBasicModeFramesEveryFileInOrder(t *testing.T) {
	repositoryTree, buildError := tree.Build([]types.Entry{
		{Path: "a.txt", Kind: types.EntryKindFile, Size: 5},
		{Path: "b/c.txt", Kind: types.EntryKindFile, Size: 3},
	})
	require.NoError(t, buildError)
	reader := mapReader{"a.txt": []byte("hello"), "b/c.txt": []byte("abc")}

	result, summary := mergeRaw(t, merge.NewEngine(merge.Options{}), selection.AllFiles(repositoryTree), reader)

	assert.Equal(t, "=== a.txt ===\nhello\n=== b/c.txt ===\nabc\n", result)
	assert.Equal(t, 2, summary.TextFiles)
	assert.Equal(t, int64(8), summary.TotalBytes)
	assert.Equal(t, "8b", summary.TotalSize)
}

func TestMergeContinuesAfterReadFailure(t *testing.T) {
	reader := mapReader{"b/c.txt": []byte("abc")}

	result, summary := mergeRaw(t, merge.NewEngine(merge.Options{}), []string{"a.txt", "b/c.txt"}, reader)

	assert.Contains(t, result, "[error reading a.txt: not found]")
	assert.Contains(t, result, "=== b/c.txt ===\nabc\n")
	assert.Equal(t, 1, summary.ErrorFiles)
	assert.Equal(t, 1, summary.TextFiles)
}

func TestMergeKeepsMarkerLikeContentInsideItsFrame(t *testing.T) {
	notes := "intro\n=== fake.go ===\n\\=== guarded.go ===\n--- Summary: 9 files ---\npayload\n"
	reader := mapReader{"notes.md": []byte(notes), "z.txt": []byte("last")}

	result, _ := mergeRaw(t, merge.NewEngine(merge.Options{Workers: 2}), []string{"notes.md", "z.txt"}, reader)
	sections, splitError := output.SplitRaw(strings.NewReader(result))
	require.NoError(t, splitError)

	require.Len(t, sections, 2)
	assert.Equal(t, "notes.md", sections[0].Path)
	assert.Equal(t, notes, sections[0].Body)
	assert.Equal(t, "z.txt", sections[1].Path)
	assert.Equal(t, "last", sections[1].Body)
}

func TestMergeSkipsBinaryContent(t *testing.T) {
	reader := mapReader{"blob.bin": []byte("\x00\x01secret payload")}

	result, summary := mergeRaw(t, merge.NewEngine(merge.Options{}), []string{"blob.bin"}, reader)

	assert.Equal(t, "=== blob.bin ===\n[binary file, 16 bytes, skipped]\n\n", result)
	assert.NotContains(t, result, "secret")
	assert.Equal(t, 1, summary.BinaryFiles)
}

func TestReadFailureReason(t *testing.T) {
	assert.Equal(t, "not found", merge.ReadFailureReason(fmt.Errorf("wrapped: %w", fs.ErrNotExist)))
	assert.Equal(t, "permission denied", merge.ReadFailureReason(&fs.PathError{Op: "open", Path: "x", Err: fs.ErrPermission}))
	assert.Equal(t, "unexpected EOF", merge.ReadFailureReason(errors.New("unexpected EOF")))
}

func TestMergeIsDeterministicAcrossRunsAndWorkerCounts(t *testing.T) {
	reader := mapReader{}
	var paths []string
	for fileIndex := 0; fileIndex < 60; fileIndex++ {
		path := fmt.Sprintf("dir%d/file%02d.txt", fileIndex%5, fileIndex)
		paths = append(paths, path)
		switch fileIndex % 7 {
		case 0:
			reader[path] = []byte{0x00, byte(fileIndex)}
		case 3:
		default:
			reader[path] = []byte(strings.Repeat(fmt.Sprintf("line %d\n", fileIndex), fileIndex%4+1))
		}
	}

	baseline, _ := mergeRaw(t, merge.NewEngine(merge.Options{Workers: 1}), paths, reader)
	for _, workers := range []int{1, 2, 8, 32} {
		for run := 0; run < 3; run++ {
			result, _ := mergeRaw(t, merge.NewEngine(merge.Options{Workers: workers}), paths, reader)
			require.Equal(t, baseline, result, "workers=%d run=%d", workers, run)
		}
	}

	sections, splitError := output.SplitRaw(strings.NewReader(baseline))
	require.NoError(t, splitError)
	require.Len(t, sections, len(paths))
	for index, section := range sections {
		assert.Equal(t, paths[index], section.Path)
	}
}

func TestMergePreservesOrderWithSlowReads(t *testing.T) {
	paths := []string{"slow", "fast1", "fast2", "fast3"}
	reader := merge.ReaderFunc(func(path string) ([]byte, error) {
		if path == "slow" {
			time.Sleep(30 * time.Millisecond)
		}
		return []byte(path), nil
	})

	result, _ := mergeRaw(t, merge.NewEngine(merge.Options{Workers: 4}), paths, reader)
	sections, splitError := output.SplitRaw(strings.NewReader(result))
	require.NoError(t, splitError)
	var order []string
	for _, section := range sections {
		order = append(order, section.Path)
	}
	assert.Equal(t, paths, order)
}

func TestMergeBoundsConcurrentReads(t *testing.T) {
	var active, peak int32
	reader := merge.ReaderFunc(func(path string) ([]byte, error) {
		current := atomic.AddInt32(&active, 1)
		for {
			observed := atomic.LoadInt32(&peak)
			if current <= observed || atomic.CompareAndSwapInt32(&peak, observed, current) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return []byte("x"), nil
	})
	var paths []string
	for index := 0; index < 40; index++ {
		paths = append(paths, fmt.Sprintf("f%d", index))
	}

	mergeRaw(t, merge.NewEngine(merge.Options{Workers: 3}), paths, reader)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestMergeCountsTokensForTextOnly(t *testing.T) {
	reader := mapReader{"a": []byte("héllo"), "b": []byte{0x00}}
	engine := merge.NewEngine(merge.Options{Counter: runeCounter{}, Model: "runes"})

	var buffer bytes.Buffer
	summary, mergeError := engine.Merge(context.Background(), []string{"a", "b"}, reader, output.NewJSONRenderer(&buffer, output.Options{IncludeSummary: true}))
	require.NoError(t, mergeError)
	assert.Equal(t, 5, summary.TotalTokens)
	assert.Equal(t, "runes", summary.Model)
	assert.Contains(t, buffer.String(), `"tokens": 5`)
}

func TestMergeStopsOnRendererError(t *testing.T) {
	reader := mapReader{"a": []byte("1"), "b": []byte("2"), "c": []byte("3")}
	renderer := &failingRenderer{}

	_, mergeError := merge.NewEngine(merge.Options{Workers: 2}).Merge(context.Background(), []string{"a", "b", "c"}, reader, renderer)
	require.EqualError(t, mergeError, "disk full")
	assert.Equal(t, 2, renderer.handled)
}

func TestMergeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := mapReader{"a": []byte("1")}

	_, mergeError := merge.NewEngine(merge.Options{}).Merge(ctx, []string{"a"}, reader, output.NewRawRenderer(&bytes.Buffer{}, output.Options{}))
	assert.ErrorIs(t, mergeError, context.Canceled)
}

func TestMergeEmptySelection(t *testing.T) {
	result, summary := mergeRaw(t, merge.NewEngine(merge.Options{Workers: 4}), nil, mapReader{})
	assert.Empty(t, result)
	assert.Zero(t, summary.TotalFiles)
}
