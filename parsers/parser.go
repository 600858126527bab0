// Package parsers turns raw alert messages into structured data and
// drives the creation of events, sequences and targets. Each parser
// recognizes one wire format; a message that no parser claims is kept
// verbatim with an empty parser name.
package parsers

import (
	"path"
	"strings"

	"skyhub/models"
)

// Parser is one wire-format handler. Parse inspects the message and,
// if it recognizes the format, fills in the structured fields, saves
// the message and creates the linked records. It reports whether the
// message was claimed. Parsers never panic outward and never return
// partial claims: on any internal failure they log and report false.
type Parser interface {
	Name() string
	Parse(msg *models.Message) bool
}

// ConvertNoticeType maps a free-form notice or alert type to the
// sequence type enum. Matching is case-insensitive substring with a
// fixed precedence, so "Earlier than initial warning" still maps to
// EARLY_WARNING. Unknown types map to the empty string.
func ConvertNoticeType(noticeType string) models.SequenceType {
	lower := strings.ToLower(noticeType)
	switch {
	case strings.Contains(lower, "warning"):
		return models.SequenceTypeEarlyWarning
	case strings.Contains(lower, "initial"):
		return models.SequenceTypeInitial
	case strings.Contains(lower, "preliminary"):
		return models.SequenceTypePreliminary
	case strings.Contains(lower, "update"):
		return models.SequenceTypeUpdate
	case strings.Contains(lower, "retraction"):
		return models.SequenceTypeRetraction
	}
	return ""
}

// MOCURLFromSkymapURL rewrites a flat skymap URL to its multiorder
// (MOC) variant, preserving any trailing ",N" version suffix. Mock
// alerts sometimes truncate the extension to ".fit"; that is repaired
// first.
func MOCURLFromSkymapURL(skymapURL string) string {
	dir, filename := path.Split(skymapURL)
	if strings.HasSuffix(filename, ".fit") {
		filename += "s"
	}
	filename = strings.Replace(filename, "LALInference.fits.gz", "LALInference.multiorder.fits", 1)
	filename = strings.Replace(filename, "bayestar.fits.gz", "bayestar.multiorder.fits", 1)
	return dir + filename
}
