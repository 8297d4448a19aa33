// Package types defines every cross‑package data structure used by the amalgam CLI.
package types

import (
	"encoding/xml"
	"strings"
)

const (
	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"

	pathSeparator = "/"
)

// EntryKind distinguishes files from directories in a repository listing.
type EntryKind int

const (
	EntryKindFile EntryKind = iota
	EntryKindDirectory
)

// String returns the lower-case name of the kind.
func (kind EntryKind) String() string {
	switch kind {
	case EntryKindFile:
		return "file"
	case EntryKindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Entry is one path of a retrieved repository. Path is slash separated and
// relative to the repository root.
type Entry struct {
	Path string
	Kind EntryKind
	Size int64
}

// Segments splits the entry path into its ordered path segments.
func (entry Entry) Segments() []string {
	if entry.Path == "" {
		return nil
	}
	return strings.Split(entry.Path, pathSeparator)
}

// FrameKind names the three shapes a merged file can take.
type FrameKind string

const (
	FrameKindText   FrameKind = "text"
	FrameKindBinary FrameKind = "binary"
	FrameKindError  FrameKind = "error"
)

// Frame is the merged representation of one selected file.
type Frame struct {
	XMLName   xml.Name  `json:"-" xml:"frame"`
	Index     int       `json:"index" xml:"index,attr"`
	Path      string    `json:"path" xml:"path,attr"`
	Kind      FrameKind `json:"kind" xml:"kind,attr"`
	SizeBytes int64     `json:"sizeBytes" xml:"sizeBytes,attr"`
	MimeType  string    `json:"mimeType,omitempty" xml:"mimeType,attr,omitempty"`
	Tokens    int       `json:"tokens,omitempty" xml:"tokens,attr,omitempty"`
	Reason    string    `json:"reason,omitempty" xml:"reason,omitempty"`
	Content   string    `json:"content,omitempty" xml:"content,omitempty"`
}

// OutputSummary captures aggregate information about merged files.
type OutputSummary struct {
	XMLName     xml.Name `json:"-" xml:"summary"`
	TotalFiles  int      `json:"totalFiles" xml:"totalFiles"`
	TextFiles   int      `json:"textFiles" xml:"textFiles"`
	BinaryFiles int      `json:"binaryFiles" xml:"binaryFiles"`
	ErrorFiles  int      `json:"errorFiles" xml:"errorFiles"`
	TotalBytes  int64    `json:"totalBytes" xml:"totalBytes"`
	TotalSize   string   `json:"totalSize" xml:"totalSize"`
	TotalTokens int      `json:"totalTokens,omitempty" xml:"totalTokens,omitempty"`
	Model       string   `json:"model,omitempty" xml:"model,omitempty"`
}

// Add accounts for one frame in the summary.
func (summary *OutputSummary) Add(frame Frame) {
	summary.TotalFiles++
	summary.TotalBytes += frame.SizeBytes
	switch frame.Kind {
	case FrameKindText:
		summary.TextFiles++
		summary.TotalTokens += frame.Tokens
	case FrameKindBinary:
		summary.BinaryFiles++
	case FrameKindError:
		summary.ErrorFiles++
	}
}
