package waitlist

import (
	"net/url"
	"strings"

	"github.com/akeren/waitlist-api/pkg/constants"
)

// Attribution is where a signup came from.
type Attribution struct {
	Source      *string
	UTMSource   *string
	UTMMedium   *string
	UTMCampaign *string
	UTMTerm     *string
	UTMContent  *string
}

// ResolveAttribution fills fields the client left blank from the referring
// URL's query string. An unusable referer contributes nothing. Source falls
// back to "landing".
func ResolveAttribution(explicit Attribution, referer string) Attribution {
	derived := attributionFromReferer(referer)

	resolved := Attribution{
		Source:      firstPresent(explicit.Source, derived.Source),
		UTMSource:   firstPresent(explicit.UTMSource, derived.UTMSource),
		UTMMedium:   firstPresent(explicit.UTMMedium, derived.UTMMedium),
		UTMCampaign: firstPresent(explicit.UTMCampaign, derived.UTMCampaign),
		UTMTerm:     firstPresent(explicit.UTMTerm, derived.UTMTerm),
		UTMContent:  firstPresent(explicit.UTMContent, derived.UTMContent),
	}

	if resolved.Source == nil {
		source := constants.DefaultAttributionSource
		resolved.Source = &source
	}

	return resolved
}

func attributionFromReferer(referer string) Attribution {
	referer = strings.TrimSpace(referer)
	if referer == "" {
		return Attribution{}
	}

	u, err := url.Parse(referer)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Attribution{}
	}

	query := u.Query()
	param := func(name string) *string {
		v := query.Get(name)
		return optionalText(&v)
	}

	return Attribution{
		Source:      param("source"),
		UTMSource:   param("utm_source"),
		UTMMedium:   param("utm_medium"),
		UTMCampaign: param("utm_campaign"),
		UTMTerm:     param("utm_term"),
		UTMContent:  param("utm_content"),
	}
}

func firstPresent(values ...*string) *string {
	for _, v := range values {
		if present := optionalText(v); present != nil {
			return present
		}
	}
	return nil
}
