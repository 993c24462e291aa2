package core

import (
	"errors"
	"fmt"
)

// Failure categories. Every failure is contained to the smallest unit
// (image, document); only ErrNoInput stops a run.
var (
	// ErrConversion indicates the external converter could not render a document.
	ErrConversion = errors.New("conversion failed")

	// ErrParse indicates a document's HTML could not be parsed or normalized.
	ErrParse = errors.New("parse failed")

	// ErrStructuralMismatch indicates sheet anchors and tables cannot be paired.
	ErrStructuralMismatch = errors.New("structural mismatch")

	// ErrAssetResolution indicates an image could not be looked up or uploaded.
	ErrAssetResolution = errors.New("asset resolution failed")

	// ErrNoInput indicates there is nothing to process at all.
	ErrNoInput = errors.New("no input")
)

// StructuralMismatchError reports a document whose named anchors do not
// line up one-to-one with its tables.
type StructuralMismatchError struct {
	Document string
	Tables   int
	Anchors  int
}

func (e *StructuralMismatchError) Error() string {
	return fmt.Sprintf("%s: document %q has %d tables but %d sheet anchors",
		ErrStructuralMismatch, e.Document, e.Tables, e.Anchors)
}

func (e *StructuralMismatchError) Unwrap() error {
	return ErrStructuralMismatch
}
