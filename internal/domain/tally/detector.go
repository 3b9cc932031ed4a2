package tally

import "strings"

// ══════════════════════════════════════════════════════════════════════════════
// WIN DETECTOR
// Pure decision function over an inbound chat message: does this message
// report a Catan win, and for whom? The detector knows nothing about the
// transport; the caller maps its message type to the Message DTO below.
// ══════════════════════════════════════════════════════════════════════════════

// AnnotationMention is the annotation kind that marks an @mention span.
const AnnotationMention = "mention"

// Annotation is a typed span inside a message caption. Offset and Length
// count characters (runes), not bytes.
type Annotation struct {
	Kind   string
	Offset int
	Length int
}

// Message is the transport-agnostic shape of an inbound chat message,
// read-only to the detector.
type Message struct {
	// HasPhoto reports whether the message carries at least one photo.
	HasPhoto bool

	// Caption is the text attached to the photo (may be empty).
	Caption string

	// Annotations are the caption's typed spans, in caption order.
	Annotations []Annotation
}

// WinReport is a positive detection result.
type WinReport struct {
	// Identity is the mentioned handle without the leading sigil.
	// It is not validated; an empty identity is still a detection.
	Identity string

	// Mention is the raw mention text as it appeared in the caption,
	// sigil included. Confirmation replies quote this form.
	Mention string
}

// DetectWin decides whether msg reports a win and extracts the target.
//
// Only the first mention annotation counts; later mentions in the same
// message are ignored so a multi-mention caption cannot double-count.
// Annotations with out-of-bounds spans are skipped rather than failing
// the whole message. A message without a photo, or a photo with no
// mention, is a miss — the common case, not an error.
func DetectWin(msg Message) (WinReport, bool) {
	if !msg.HasPhoto {
		return WinReport{}, false
	}

	caption := []rune(msg.Caption)
	for _, ann := range msg.Annotations {
		if ann.Kind != AnnotationMention {
			continue
		}
		// Checked without adding Offset+Length, which can overflow.
		if ann.Offset < 0 || ann.Length < 0 ||
			ann.Offset > len(caption) || ann.Length > len(caption)-ann.Offset {
			continue
		}

		mention := string(caption[ann.Offset : ann.Offset+ann.Length])
		return WinReport{
			Identity: strings.TrimPrefix(mention, "@"),
			Mention:  mention,
		}, true
	}

	return WinReport{}, false
}
