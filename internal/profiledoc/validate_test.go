package profiledoc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	out := make([]string, len(verr.Fields))
	for i, f := range verr.Fields {
		out[i] = f.Path
	}
	return out
}

func TestValidate_AcceptsDefault(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestValidate_AcceptsCompleteDocument(t *testing.T) {
	d := Document{
		SectionIdentity: {"headline": "CTO", "pronoun_style": "vous"},
		SectionAudience: {"maturity": "avancé", "pains": []any{"temps"}},
		SectionOffer: {"case_studies": []any{
			map[string]any{"title": "Migration", "result": "-40% coûts"},
		}},
		SectionVoice: {
			"tone":              "pédagogique",
			"emojis":            true,
			"preferred_formats": []any{"carousel", "vidéo"},
			"cta_style":         "",
		},
		SectionAssets: {"links": []any{
			map[string]any{"label": "Blog", "url": "https://x.dev", "type": "blog"},
		}},
		SectionCalendar: {"preferred_days": []any{0.0, 6.0}, "preferred_hours": []any{"08:30", "23:59"}},
	}
	assert.NoError(t, Validate(d))
}

func TestValidate_RejectsEnumOutsideSet(t *testing.T) {
	d := Default()
	d[SectionVoice] = Section{"tone": "loud", "preferred_formats": []any{"reel"}}

	got := paths(t, Validate(d))
	assert.Equal(t, []string{"voice.preferred_formats[0]", "voice.tone"}, got)
}

func TestValidate_Calendar(t *testing.T) {
	d := Default()
	d[SectionCalendar] = Section{
		"preferred_days":  []any{7.0, 2.5, "monday", 3.0},
		"preferred_hours": []any{"9:00", "24:00", "12:15"},
	}

	got := paths(t, Validate(d))
	assert.Equal(t, []string{
		"calendar.preferred_days[0]",
		"calendar.preferred_days[1]",
		"calendar.preferred_days[2]",
		"calendar.preferred_hours[0]",
		"calendar.preferred_hours[1]",
	}, got)
}

func TestValidate_UnknownSectionAndField(t *testing.T) {
	d := Default()
	d["hobbies"] = Section{"x": "y"}
	d[SectionSignals] = Section{"stocks": []any{}}

	got := paths(t, Validate(d))
	assert.Equal(t, []string{"hobbies", "signals.stocks"}, got)
}

func TestValidate_WrongKinds(t *testing.T) {
	d := Default()
	d[SectionIdentity] = Section{"headline": 12.0}
	d[SectionVoice] = Section{"emojis": "yes"}
	d[SectionAssets] = Section{"links": []any{"https://x", map[string]any{"type": "shop", "rel": "me"}}}

	got := paths(t, Validate(d))
	assert.Equal(t, []string{
		"assets.links[0]",
		"assets.links[1].rel",
		"assets.links[1].type",
		"identity.headline",
		"voice.emojis",
	}, got)
}

func TestValidate_NullValuesAccepted(t *testing.T) {
	d := Default()
	d[SectionVoice] = Section{"tone": nil, "hashtags": nil}
	assert.NoError(t, Validate(d))
}
