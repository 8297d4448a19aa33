// Package output encodes merged frames as raw text, JSON, or XML.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/temirov/amalgam/internal/tree"
	"github.com/temirov/amalgam/internal/types"
	"github.com/temirov/amalgam/internal/utils"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	summaryLineFormat   = "Summary: %d %s (%d text, %d binary, %d %s), %s"
	summaryTokensFormat = ", %d tokens"
	summaryModelFormat  = " (%s)"

	errorUnsupportedFormat = "unsupported output format %q"
)

// FrameRenderer receives frames in selection order and the summary once all frames were handled.
type FrameRenderer interface {
	Handle(frame types.Frame) error
	Flush(summary types.OutputSummary) error
}

// Options configures a renderer.
type Options struct {
	// IncludeSummary appends aggregate counts after the frames.
	IncludeSummary bool
	// Tree, when set, is drawn before the first frame. Excluded nodes are omitted.
	Tree *tree.Tree
	// TreeLabel names the root line of the tree diagram.
	TreeLabel string
}

// NewRenderer constructs the renderer for format writing to writer.
func NewRenderer(format string, writer io.Writer, options Options) (FrameRenderer, error) {
	switch format {
	case types.FormatRaw, "":
		return NewRawRenderer(writer, options), nil
	case types.FormatJSON:
		return NewJSONRenderer(writer, options), nil
	case types.FormatXML:
		return NewXMLRenderer(writer, options), nil
	default:
		return nil, fmt.Errorf(errorUnsupportedFormat, format)
	}
}

// FormatSummaryLine renders the one-line summary used by the raw format and logs.
func FormatSummaryLine(summary types.OutputSummary) string {
	fileLabel := "files"
	if summary.TotalFiles == 1 {
		fileLabel = "file"
	}
	errorLabel := "errors"
	if summary.ErrorFiles == 1 {
		errorLabel = "error"
	}
	totalSize := summary.TotalSize
	if totalSize == "" {
		totalSize = utils.FormatFileSize(summary.TotalBytes)
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, summaryLineFormat, summary.TotalFiles, fileLabel, summary.TextFiles, summary.BinaryFiles, summary.ErrorFiles, errorLabel, totalSize)
	if summary.TotalTokens > 0 {
		fmt.Fprintf(&builder, summaryTokensFormat, summary.TotalTokens)
		if summary.Model != "" {
			fmt.Fprintf(&builder, summaryModelFormat, summary.Model)
		}
	}
	return builder.String()
}
