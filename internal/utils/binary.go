package utils

import (
	"unicode/utf8"
)

const (
	// SniffLength is the maximum number of leading bytes inspected when classifying content.
	SniffLength = 8000
	// NonTextRatioThreshold is the fraction of non-text bytes above which content is binary.
	NonTextRatioThreshold = 0.30
)

// Classification is the outcome of inspecting a byte slice.
type Classification int

const (
	// ClassificationText marks content that can be emitted verbatim.
	ClassificationText Classification = iota
	// ClassificationBinary marks content that is replaced by a placeholder.
	ClassificationBinary
)

// String returns a lower-case label for the classification.
func (classification Classification) String() string {
	if classification == ClassificationBinary {
		return "binary"
	}
	return "text"
}

// Classify inspects at most SniffLength leading bytes of data. Content holding a
// NUL byte, or whose share of non-text bytes exceeds NonTextRatioThreshold, is binary.
// A UTF-8 sequence cut off by the end of the sample counts as text.
func Classify(data []byte) Classification {
	sample := data
	if len(sample) > SniffLength {
		sample = sample[:SniffLength]
	}
	if len(sample) == 0 {
		return ClassificationText
	}

	nonTextBytes := 0
	for offset := 0; offset < len(sample); {
		byteValue := sample[offset]
		if byteValue == 0 {
			return ClassificationBinary
		}
		if byteValue < utf8.RuneSelf {
			if !isTextByte(byteValue) {
				nonTextBytes++
			}
			offset++
			continue
		}
		decodedRune, runeSize := utf8.DecodeRune(sample[offset:])
		if decodedRune == utf8.RuneError && runeSize <= 1 {
			if !utf8.FullRune(sample[offset:]) {
				break
			}
			nonTextBytes++
			offset++
			continue
		}
		offset += runeSize
	}

	if float64(nonTextBytes)/float64(len(sample)) > NonTextRatioThreshold {
		return ClassificationBinary
	}
	return ClassificationText
}

// IsBinary reports whether the provided byte slice appears to contain binary data.
func IsBinary(data []byte) bool {
	return Classify(data) == ClassificationBinary
}

func isTextByte(byteValue byte) bool {
	switch byteValue {
	case '\t', '\n', '\v', '\f', '\r', '\b', 0x1b:
		return true
	}
	return byteValue >= 0x20 && byteValue < 0x7f
}
