package attachutil

import (
	"testing"

	"github.com/engagic/pipeline/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attachments(names ...string) []models.Attachment {
	out := make([]models.Attachment, len(names))
	for i, n := range names {
		out[i] = models.Attachment{DisplayName: n}
	}
	return out
}

func TestFilterVersions_LegistarScenario(t *testing.T) {
	// spec.md §8 scenario 3.
	in := attachments("Staff Report Leg Ver1", "Staff Report Leg Ver2", "Exhibit A")
	out := FilterVersions(in, nil)

	require.Len(t, out, 2)
	assert.Equal(t, "Staff Report Leg Ver2", out[0].DisplayName)
	assert.Equal(t, "Exhibit A", out[1].DisplayName)
}

func TestFilterVersions_NoVersionedAttachmentsUnchanged(t *testing.T) {
	in := attachments("Agenda", "Exhibit A", "Resolution")
	out := FilterVersions(in, nil)
	assert.Equal(t, in, out)
}

func TestFilterVersions_NoExplicitVersionNumberFallsBackToFirst(t *testing.T) {
	in := attachments("Staff Report Leg Ver", "Exhibit A")
	out := FilterVersions(in, nil)
	require.Len(t, out, 2)
	assert.Equal(t, "Staff Report Leg Ver", out[0].DisplayName)
}

func TestFilterVersions_IsIdempotent(t *testing.T) {
	in := attachments("Staff Report Leg Ver1", "Staff Report Leg Ver2", "Exhibit A")
	once := FilterVersions(in, nil)
	twice := FilterVersions(once, nil)
	assert.Equal(t, once, twice)
}

func TestFilterVersions_HighVersionNumbers(t *testing.T) {
	in := attachments("Leg Ver10", "Leg Ver2", "Leg Ver9")
	out := FilterVersions(in, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "Leg Ver10", out[0].DisplayName)
}

func TestFilterVersions_CustomPatterns(t *testing.T) {
	in := attachments("Draft v1", "Draft v2", "Notes")
	out := FilterVersions(in, []string{"draft"})
	require.Len(t, out, 2)
	assert.Equal(t, "Draft v2", out[0].DisplayName)
	assert.Equal(t, "Notes", out[1].DisplayName)
}
