package output

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/temirov/amalgam/internal/types"
)

const (
	xmlRootOpen  = "<amalgam>\n"
	xmlRootClose = "</amalgam>\n"
	xmlTreeName  = "tree"
)

type xmlRenderer struct {
	writer  io.Writer
	options Options
	encoder *xml.Encoder
}

// NewXMLRenderer writes every frame as a <frame> element inside an <amalgam> document.
func NewXMLRenderer(writer io.Writer, options Options) FrameRenderer {
	return &xmlRenderer{writer: writer, options: options}
}

func (renderer *xmlRenderer) ensureEncoder() error {
	if renderer.encoder != nil {
		return nil
	}
	if _, err := io.WriteString(renderer.writer, xml.Header+xmlRootOpen); err != nil {
		return err
	}
	renderer.encoder = xml.NewEncoder(renderer.writer)
	renderer.encoder.Indent(indentSpacer, indentSpacer)
	if renderer.options.Tree == nil {
		return nil
	}
	var diagram strings.Builder
	if err := WriteTreeDiagram(&diagram, renderer.options.Tree, renderer.options.TreeLabel); err != nil {
		return err
	}
	return renderer.encoder.EncodeElement(diagram.String(), xml.StartElement{Name: xml.Name{Local: xmlTreeName}})
}

func (renderer *xmlRenderer) Handle(frame types.Frame) error {
	if err := renderer.ensureEncoder(); err != nil {
		return err
	}
	return renderer.encoder.Encode(frame)
}

func (renderer *xmlRenderer) Flush(summary types.OutputSummary) error {
	if err := renderer.ensureEncoder(); err != nil {
		return err
	}
	if renderer.options.IncludeSummary {
		if err := renderer.encoder.Encode(summary); err != nil {
			return err
		}
	}
	if err := renderer.encoder.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(renderer.writer, "\n"+xmlRootClose)
	return err
}
