package output

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/temirov/amalgam/internal/types"
)

const (
	frameMarkerFormat    = "=== %s ===\n"
	summaryFooterFormat  = "--- %s ---\n"
	binarySkipFormat     = "[binary file, %d bytes, skipped]\n"
	readErrorFormat      = "[error reading %s: %s]\n"
	frameTerminator      = "\n"
	preambleSeparator    = "\n"
	newlineCharacter     = "\n"
	carriageReturn       = "\r"
	escapeGuard          = `\`
	readerBufferCapacity = 64 * 1024
)

var (
	// FrameMarkerPattern matches the first line of every raw frame and captures its path.
	FrameMarkerPattern = regexp.MustCompile(`^=== (.+) ===$`)
	// SummaryFooterPattern matches the optional footer line and captures the summary text.
	SummaryFooterPattern = regexp.MustCompile(`^--- (Summary: .+) ---$`)
)

type rawRenderer struct {
	writer          io.Writer
	options         Options
	preambleWritten bool
}

// NewRawRenderer writes frames as marker lines followed by content or a notice.
func NewRawRenderer(writer io.Writer, options Options) FrameRenderer {
	return &rawRenderer{writer: writer, options: options}
}

func (renderer *rawRenderer) writePreamble() error {
	if renderer.preambleWritten {
		return nil
	}
	renderer.preambleWritten = true
	if renderer.options.Tree == nil {
		return nil
	}
	if err := WriteTreeDiagram(renderer.writer, renderer.options.Tree, renderer.options.TreeLabel); err != nil {
		return err
	}
	_, err := io.WriteString(renderer.writer, preambleSeparator)
	return err
}

func (renderer *rawRenderer) Handle(frame types.Frame) error {
	if err := renderer.writePreamble(); err != nil {
		return err
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, frameMarkerFormat, frame.Path)
	switch frame.Kind {
	case types.FrameKindText:
		builder.WriteString(EscapeContent(frame.Content))
	case types.FrameKindBinary:
		fmt.Fprintf(&builder, binarySkipFormat, frame.SizeBytes)
	case types.FrameKindError:
		fmt.Fprintf(&builder, readErrorFormat, frame.Path, frame.Reason)
	}
	builder.WriteString(frameTerminator)
	_, err := io.WriteString(renderer.writer, builder.String())
	return err
}

func (renderer *rawRenderer) Flush(summary types.OutputSummary) error {
	if err := renderer.writePreamble(); err != nil {
		return err
	}
	if !renderer.options.IncludeSummary {
		return nil
	}
	_, err := fmt.Fprintf(renderer.writer, summaryFooterFormat, FormatSummaryLine(summary))
	return err
}

// isReservedLine reports whether line, without its line ending and any
// escape guards, would be read as a frame marker or the summary footer.
func isReservedLine(line string) bool {
	bare := strings.TrimLeft(strings.TrimSuffix(strings.TrimSuffix(line, newlineCharacter), carriageReturn), escapeGuard)
	return FrameMarkerPattern.MatchString(bare) || SummaryFooterPattern.MatchString(bare)
}

// EscapeContent prefixes a guard to every line that would otherwise be read
// as a frame marker or the summary footer, including lines that already
// carry guards, so UnescapeLine restores the exact content.
func EscapeContent(content string) string {
	if !strings.Contains(content, "=== ") && !strings.Contains(content, "--- Summary: ") {
		return content
	}
	var builder strings.Builder
	builder.Grow(len(content))
	for _, line := range strings.SplitAfter(content, newlineCharacter) {
		if line != "" && isReservedLine(line) {
			builder.WriteString(escapeGuard)
		}
		builder.WriteString(line)
	}
	return builder.String()
}

// UnescapeLine removes the guard EscapeContent added to line.
func UnescapeLine(line string) string {
	if strings.HasPrefix(line, escapeGuard) && isReservedLine(line) {
		return line[len(escapeGuard):]
	}
	return line
}

// RawSection is one frame recovered from a raw stream.
type RawSection struct {
	Path string
	Body string
}

// SplitRaw splits a raw stream on frame marker lines. Text before the first
// marker and the summary footer are dropped. Each body is the exact text
// content of its frame, or the notice line of a binary or error frame.
func SplitRaw(reader io.Reader) ([]RawSection, error) {
	bufferedReader := bufio.NewReaderSize(reader, readerBufferCapacity)

	var sections []RawSection
	var body strings.Builder
	closeSection := func() {
		if len(sections) == 0 {
			return
		}
		sections[len(sections)-1].Body = strings.TrimSuffix(body.String(), frameTerminator)
		body.Reset()
	}
	for {
		line, readError := bufferedReader.ReadString('\n')
		if line != "" {
			bareLine := strings.TrimSuffix(line, newlineCharacter)
			if match := FrameMarkerPattern.FindStringSubmatch(bareLine); match != nil {
				closeSection()
				sections = append(sections, RawSection{Path: match[1]})
			} else if SummaryFooterPattern.MatchString(bareLine) {
				break
			} else if len(sections) > 0 {
				body.WriteString(UnescapeLine(line))
			}
		}
		if readError == io.EOF {
			break
		}
		if readError != nil {
			return nil, readError
		}
	}
	closeSection()
	return sections, nil
}
