package fetch

import (
	"net/url"
	"strings"
)

// Platform is a known applicant-tracking system
type Platform string

// Known platforms
const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformAshby      Platform = "ashby"
	PlatformUnknown    Platform = "unknown"
)

// host suffixes per platform, checked in order
var platformHosts = []struct {
	platform Platform
	suffixes []string
}{
	{PlatformGreenhouse, []string{"greenhouse.io"}},
	{PlatformLever, []string{"lever.co"}},
	{PlatformWorkday, []string{"myworkdayjobs.com", "workday.com"}},
	{PlatformAshby, []string{"ashbyhq.com"}},
}

// DetectPlatform identifies the applicant-tracking system hosting a posting
func DetectPlatform(rawURL string) Platform {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Hostname())

	for _, entry := range platformHosts {
		for _, suffix := range entry.suffixes {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return entry.platform
			}
		}
	}
	return PlatformUnknown
}

// ContentSelectors returns the description selectors for a platform, most
// specific first, ending with the generic job-page selectors
func ContentSelectors(platform Platform) []string {
	var specific []string
	switch platform {
	case PlatformGreenhouse:
		specific = []string{".job__description.body", ".job__description", ".job-description__content", "#content"}
	case PlatformLever:
		specific = []string{".posting-page .section-wrapper.page-full-width", ".posting-description"}
	case PlatformWorkday:
		specific = []string{"[data-automation-id='jobPostingDescription']", "[data-automation-id='jobDescription']"}
	case PlatformAshby:
		specific = []string{"[class*='descriptionText']"}
	}
	return append(specific, JobPostingSelectors()...)
}

// NoiseSelectors returns elements stripped from a platform's pages
func NoiseSelectors(platform Platform) []string {
	common := []string{
		"form",
		"#application-form",
		".application-form",
		".apply-button-container",
		".eeo-statement",
		".eeo-section",
		".voluntary-disclosure",
		".social-share",
		".share-buttons",
		".cookie-consent",
	}

	switch platform {
	case PlatformGreenhouse:
		return append(common, ".application--wrapper", "#usa_self_id_section", ".post-apply")
	case PlatformLever:
		return append(common, ".apply-section", ".posting-apply")
	case PlatformWorkday:
		return append(common, "[data-automation-id='applyButton']")
	default:
		return common
	}
}
