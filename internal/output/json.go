package output

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/temirov/amalgam/internal/types"
)

const (
	jsonFrameIndent   = "    "
	jsonSummaryIndent = "  "
)

type jsonRenderer struct {
	writer     io.Writer
	options    Options
	started    bool
	frameCount int
}

// NewJSONRenderer streams frames into a single JSON document of the form
// {"tree": "...", "frames": [...], "summary": {...}}.
func NewJSONRenderer(writer io.Writer, options Options) FrameRenderer {
	return &jsonRenderer{writer: writer, options: options}
}

func encodeJSON(value interface{}, prefix string) (string, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent(prefix, indentSpacer)
	if err := encoder.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buffer.String(), "\n"), nil
}

func (renderer *jsonRenderer) begin() error {
	if renderer.started {
		return nil
	}
	renderer.started = true
	var builder strings.Builder
	builder.WriteString("{\n")
	if renderer.options.Tree != nil {
		var diagram strings.Builder
		if err := WriteTreeDiagram(&diagram, renderer.options.Tree, renderer.options.TreeLabel); err != nil {
			return err
		}
		encodedDiagram, err := encodeJSON(diagram.String(), indentPrefix)
		if err != nil {
			return err
		}
		builder.WriteString(jsonSummaryIndent + "\"tree\": " + encodedDiagram + ",\n")
	}
	builder.WriteString(jsonSummaryIndent + "\"frames\": [")
	_, err := io.WriteString(renderer.writer, builder.String())
	return err
}

func (renderer *jsonRenderer) Handle(frame types.Frame) error {
	if err := renderer.begin(); err != nil {
		return err
	}
	encodedFrame, err := encodeJSON(frame, jsonFrameIndent)
	if err != nil {
		return err
	}
	separator := ",\n"
	if renderer.frameCount == 0 {
		separator = "\n"
	}
	renderer.frameCount++
	_, err = io.WriteString(renderer.writer, separator+jsonFrameIndent+encodedFrame)
	return err
}

func (renderer *jsonRenderer) Flush(summary types.OutputSummary) error {
	if err := renderer.begin(); err != nil {
		return err
	}
	var builder strings.Builder
	if renderer.frameCount > 0 {
		builder.WriteString("\n" + jsonSummaryIndent)
	}
	builder.WriteString("]")
	if renderer.options.IncludeSummary {
		encodedSummary, err := encodeJSON(summary, jsonSummaryIndent)
		if err != nil {
			return err
		}
		builder.WriteString(",\n" + jsonSummaryIndent + "\"summary\": " + encodedSummary)
	}
	builder.WriteString("\n}\n")
	_, err := io.WriteString(renderer.writer, builder.String())
	return err
}
