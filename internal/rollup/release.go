package rollup

import (
	"fmt"
	"regexp"
	"strings"
)

// ReleaseTag is the maturity level a documentation comment assigns to a
// declaration.
type ReleaseTag uint8

const (
	TagNone ReleaseTag = iota
	TagInternal
	TagAlpha
	TagBeta
	TagPublic
)

func (t ReleaseTag) String() string {
	switch t {
	case TagInternal:
		return "internal"
	case TagAlpha:
		return "alpha"
	case TagBeta:
		return "beta"
	case TagPublic:
		return "public"
	}
	return "none"
}

var releaseTagPattern = regexp.MustCompile(`(?:^|[\s*])@(internal|alpha|beta|public)\b`)

// ParseReleaseTag returns the first release tag found in a documentation
// comment, or TagNone.
func ParseReleaseTag(comment string) ReleaseTag {
	m := releaseTagPattern.FindStringSubmatch(comment)
	if m == nil {
		return TagNone
	}
	switch m[1] {
	case "internal":
		return TagInternal
	case "alpha":
		return TagAlpha
	case "beta":
		return TagBeta
	}
	return TagPublic
}

// ReleaseKind selects which release tags survive in an output file.
type ReleaseKind uint8

const (
	// InternalRelease keeps every declaration.
	InternalRelease ReleaseKind = iota + 1
	// PreviewRelease keeps beta, public and untagged declarations.
	PreviewRelease
	// PublicRelease keeps public and untagged declarations.
	PublicRelease
)

// ReleaseKinds lists every kind in output order.
var ReleaseKinds = []ReleaseKind{InternalRelease, PreviewRelease, PublicRelease}

func (k ReleaseKind) String() string {
	switch k {
	case InternalRelease:
		return "internal"
	case PreviewRelease:
		return "preview"
	case PublicRelease:
		return "public"
	}
	return fmt.Sprintf("ReleaseKind(%d)", uint8(k))
}

// ParseReleaseKind parses "internal", "preview" (or "beta") and "public".
func ParseReleaseKind(s string) (ReleaseKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "internal":
		return InternalRelease, nil
	case "preview", "beta":
		return PreviewRelease, nil
	case "public":
		return PublicRelease, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownReleaseKind, s)
}

// Keeps reports whether declarations tagged with tag are emitted for k.
func (k ReleaseKind) Keeps(tag ReleaseTag) (bool, error) {
	switch k {
	case InternalRelease:
		return true, nil
	case PreviewRelease:
		return tag == TagBeta || tag == TagPublic || tag == TagNone, nil
	case PublicRelease:
		return tag == TagPublic || tag == TagNone, nil
	}
	return false, fmt.Errorf("%w: %s", ErrUnknownReleaseKind, k)
}
