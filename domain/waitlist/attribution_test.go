package waitlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAttribution_FromReferer(t *testing.T) {
	got := ResolveAttribution(Attribution{}, "https://example.com/pricing?utm_source=foo&utm_campaign=launch&source=newsletter")

	assert.Equal(t, "newsletter", *got.Source)
	assert.Equal(t, "foo", *got.UTMSource)
	assert.Equal(t, "launch", *got.UTMCampaign)
	assert.Nil(t, got.UTMMedium)
	assert.Nil(t, got.UTMTerm)
	assert.Nil(t, got.UTMContent)
}

func TestResolveAttribution_ExplicitWinsFieldByField(t *testing.T) {
	explicit := Attribution{UTMSource: strPtr("bar"), UTMTerm: strPtr("")}
	got := ResolveAttribution(explicit, "https://example.com/?utm_source=foo&utm_term=waitlist")

	assert.Equal(t, "bar", *got.UTMSource)
	// Empty explicit values count as absent.
	assert.Equal(t, "waitlist", *got.UTMTerm)
}

func TestResolveAttribution_UnusableReferer(t *testing.T) {
	for _, referer := range []string{"", "not a url", "/relative?utm_source=foo", "://broken", "https://example.com/?utm_source="} {
		got := ResolveAttribution(Attribution{}, referer)
		assert.Equal(t, "landing", *got.Source, referer)
		assert.Nil(t, got.UTMSource, referer)
	}
}
