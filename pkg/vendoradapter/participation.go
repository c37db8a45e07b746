package vendoradapter

import (
	"regexp"
	"strings"

	"github.com/engagic/pipeline/pkg/models"
)

// Participation-info regexes, ported from
// original_source/infocore/adapters/html_agenda_parser.py's
// _extract_participation_info.
var (
	emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phonePattern = regexp.MustCompile(`\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
	zoomPattern  = regexp.MustCompile(`(?i)zoom\.us/j/(\d+)`)
	urlPattern   = regexp.MustCompile(`(?i)https?://[^\s<>"]+`)

	virtualKeywords = []string{"zoom", "webex", "teams", "virtual meeting", "join online", "video conference"}
	hybridKeywords  = []string{"hybrid", "in person or virtual", "in-person or virtual", "attend in person or"}
)

// extractParticipationInfo scans an agenda page's plain text for public
// contact and remote-attendance details (spec.md §4.1 PrimeGov rules).
func extractParticipationInfo(text string) models.ParticipationInfo {
	lower := strings.ToLower(text)
	var info models.ParticipationInfo

	if m := emailPattern.FindString(text); m != "" {
		info.Email = m
	}
	if m := phonePattern.FindString(text); m != "" {
		info.Phone = m
	}
	if m := zoomPattern.FindStringSubmatch(text); m != nil {
		info.ZoomMeetingID = m[1]
	}

	for _, candidate := range urlPattern.FindAllString(text, -1) {
		cl := strings.ToLower(candidate)
		if strings.Contains(cl, "zoom.us") || strings.Contains(cl, "webex.com") || strings.Contains(cl, "teams.microsoft.com") {
			info.VirtualURL = candidate
			break
		}
	}

	isVirtualKeyword := containsAny(lower, virtualKeywords)
	isHybrid := containsAny(lower, hybridKeywords)

	info.IsHybrid = isHybrid
	info.IsVirtualOnly = isVirtualKeyword && !isHybrid

	return info
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
