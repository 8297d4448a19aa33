// Package merge concatenates selected repository files into framed output.
package merge

import (
	"context"
	"errors"
	"io/fs"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/amalgam/internal/output"
	"github.com/temirov/amalgam/internal/tokenizer"
	"github.com/temirov/amalgam/internal/types"
	"github.com/temirov/amalgam/internal/utils"
)

const (
	defaultWorkers        = 1
	windowFramesPerWorker = 4

	reasonNotFound         = "not found"
	reasonPermissionDenied = "permission denied"

	logMessageReadFailure  = "Failed to read file"
	logMessageBinarySkip   = "Skipping binary file"
	logMessageTokenFailure = "Failed to count tokens"
	logFieldPath           = "path"
	logFieldBytes          = "bytes"
)

// Reader supplies the bytes of a repository path.
type Reader interface {
	ReadBytes(path string) ([]byte, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(path string) ([]byte, error)

// ReadBytes calls readerFunc(path).
func (readerFunc ReaderFunc) ReadBytes(path string) ([]byte, error) {
	return readerFunc(path)
}

// Options configures an Engine.
type Options struct {
	// Workers bounds concurrent reads. Values below one read sequentially.
	Workers int
	// Counter annotates text frames with token counts when set.
	Counter tokenizer.Counter
	// Model is reported in the summary when Counter is set.
	Model  string
	Logger *zap.Logger
}

// Engine reads, classifies, and frames files in selection order.
type Engine struct {
	workers int
	counter tokenizer.Counter
	model   string
	logger  *zap.Logger
}

// NewEngine constructs an Engine.
func NewEngine(options Options) *Engine {
	workers := options.Workers
	if workers < defaultWorkers {
		workers = defaultWorkers
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{workers: workers, counter: options.Counter, model: options.Model, logger: logger}
}

// Merge emits exactly one frame per path, in the order of paths, then flushes
// the renderer with the summary. Unreadable files become error frames; only
// context cancellation and renderer failures abort the merge. Reads may run
// concurrently but frames always reach the renderer in order.
func (engine *Engine) Merge(ctx context.Context, paths []string, reader Reader, renderer output.FrameRenderer) (types.OutputSummary, error) {
	summary := types.OutputSummary{}
	if engine.counter != nil {
		summary.Model = engine.model
	}

	slots := make([]chan types.Frame, len(paths))
	for slotIndex := range slots {
		slots[slotIndex] = make(chan types.Frame, 1)
	}
	window := make(chan struct{}, engine.workers*windowFramesPerWorker)

	group, mergeContext := errgroup.WithContext(ctx)

	group.Go(func() error {
		var readers errgroup.Group
		readers.SetLimit(engine.workers)
		defer readers.Wait()
		for pathIndex, path := range paths {
			select {
			case <-mergeContext.Done():
				return nil
			case window <- struct{}{}:
			}
			pathIndex, path := pathIndex, path
			readers.Go(func() error {
				slots[pathIndex] <- engine.readFrame(pathIndex, path, reader)
				return nil
			})
		}
		return nil
	})

	group.Go(func() error {
		for pathIndex := range paths {
			if err := mergeContext.Err(); err != nil {
				return err
			}
			var frame types.Frame
			select {
			case <-mergeContext.Done():
				return mergeContext.Err()
			case frame = <-slots[pathIndex]:
			}
			<-window
			engine.countTokens(&frame)
			if err := renderer.Handle(frame); err != nil {
				return err
			}
			summary.Add(frame)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return summary, err
	}
	summary.TotalSize = utils.FormatFileSize(summary.TotalBytes)
	if err := renderer.Flush(summary); err != nil {
		return summary, err
	}
	return summary, nil
}

func (engine *Engine) readFrame(index int, path string, reader Reader) types.Frame {
	frame := types.Frame{Index: index, Path: path}
	data, readError := reader.ReadBytes(path)
	if readError != nil {
		engine.logger.Warn(logMessageReadFailure, zap.String(logFieldPath, path), zap.Error(readError))
		frame.Kind = types.FrameKindError
		frame.Reason = ReadFailureReason(readError)
		return frame
	}
	frame.SizeBytes = int64(len(data))
	if utils.Classify(data) == utils.ClassificationBinary {
		engine.logger.Debug(logMessageBinarySkip, zap.String(logFieldPath, path), zap.Int64(logFieldBytes, frame.SizeBytes))
		frame.Kind = types.FrameKindBinary
		frame.MimeType = utils.DetectMimeType(data)
		return frame
	}
	frame.Kind = types.FrameKindText
	frame.Content = string(data)
	return frame
}

func (engine *Engine) countTokens(frame *types.Frame) {
	if engine.counter == nil || frame.Kind != types.FrameKindText {
		return
	}
	countResult, countError := tokenizer.CountBytes(engine.counter, []byte(frame.Content))
	if countError != nil {
		engine.logger.Warn(logMessageTokenFailure, zap.String(logFieldPath, frame.Path), zap.Error(countError))
		return
	}
	if countResult.Counted {
		frame.Tokens = countResult.Tokens
	}
}

// ReadFailureReason maps a read error to the reason printed in an error frame.
func ReadFailureReason(readError error) string {
	switch {
	case errors.Is(readError, fs.ErrNotExist):
		return reasonNotFound
	case errors.Is(readError, fs.ErrPermission):
		return reasonPermissionDenied
	default:
		return readError.Error()
	}
}
