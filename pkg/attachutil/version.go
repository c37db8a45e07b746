// Package attachutil implements generic attachment version deduplication and
// vendor metadata normalization (spec.md §4.7), grounded 1:1 on
// original_source/vendors/utils/attachments.py.
package attachutil

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/engagic/pipeline/pkg/models"
)

// DefaultVersionPatterns are the substrings that mark an attachment name as
// versioned (spec.md §4.7's default: "leg ver", "legislative version").
var DefaultVersionPatterns = []string{"leg ver", "legislative version"}

// versionPattern builds the "verN | vN | versionN" regex for a given N, high
// to low up to 10, per spec.md §4.7.
func versionPattern(n int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)ver\s*%d|v\s*%d|\bversion\s*%d`, n, n, n))
}

// FilterVersions partitions attachments into versioned vs. unversioned,
// keeps the single highest-numbered versioned entry, and returns it at the
// front of the unversioned list (spec.md §4.7). Idempotent: running it again
// on its own output is a no-op, since the output contains at most one
// versioned entry.
func FilterVersions(attachments []models.Attachment, versionPatterns []string) []models.Attachment {
	if versionPatterns == nil {
		versionPatterns = DefaultVersionPatterns
	}

	var versioned, other []models.Attachment
	for _, att := range attachments {
		name := strings.ToLower(att.DisplayName)
		isVersioned := false
		for _, pattern := range versionPatterns {
			if strings.Contains(name, pattern) {
				isVersioned = true
				break
			}
		}
		if isVersioned {
			versioned = append(versioned, att)
		} else {
			other = append(other, att)
		}
	}

	if len(versioned) == 0 {
		return other
	}

	selected := selectHighestVersion(versioned)
	return append([]models.Attachment{selected}, other...)
}

// selectHighestVersion scans version numbers 10 down to 1; the first pattern
// that matches any attachment wins. Falls back to the first attachment when
// no explicit version number is found (spec.md §4.7).
func selectHighestVersion(versioned []models.Attachment) models.Attachment {
	for n := 10; n >= 1; n-- {
		pattern := versionPattern(n)
		for _, att := range versioned {
			if pattern.MatchString(att.DisplayName) {
				return att
			}
		}
	}
	return versioned[0]
}
