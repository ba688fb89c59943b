package fetcher

import (
	"strings"

	pkgerrors "github.com/karaokeforge/pipeline/pkg/errors"
)

// ClassifyError maps a downloader's stderr text to the §7 fetch error
// taxonomy. Matching is deliberately loose substring matching, mirroring
// the breadth of phrasing real downloader tools use across versions.
func ClassifyError(stderr string) pkgerrors.Code {
	lower := strings.ToLower(stderr)

	switch {
	case strings.Contains(lower, "unsupported url"):
		return pkgerrors.CodeUnsupportedURL
	case strings.Contains(lower, "sign in to confirm your age"),
		strings.Contains(lower, "login required"),
		strings.Contains(lower, "private video"):
		return pkgerrors.CodeLoginRequired
	case strings.Contains(lower, "this video is unavailable"),
		strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "has been removed"):
		return pkgerrors.CodeUnavailable
	case strings.Contains(lower, "account associated with this video has been terminated"):
		return pkgerrors.CodePrivate
	case strings.Contains(lower, "premieres in"), strings.Contains(lower, "this live event will begin"):
		return pkgerrors.CodeFutureLive
	case strings.Contains(lower, "copyright"):
		return pkgerrors.CodeCopyright
	case strings.Contains(lower, "requested format is not available"):
		return pkgerrors.CodeFormatUnavail
	case strings.Contains(lower, "no video results"), strings.Contains(lower, "no results"):
		return pkgerrors.CodeNoResults
	case strings.Contains(lower, "timed out"), strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "temporary failure in name resolution"), strings.Contains(lower, "network"):
		return pkgerrors.CodeNetwork
	default:
		return pkgerrors.CodeGeneric
	}
}

// ExtractVideoID pulls the canonical video identifier out of a streaming
// URL, or returns "" if none is found.
func ExtractVideoID(input string) string {
	matches := videoIDPattern.FindAllString(input, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

// KnownExtensions returns the set of extensions the download-dir
// short-circuit check recognizes.
func KnownExtensions() []string {
	return knownExts
}
