package analyzer

import (
	"regexp"
	"strings"

	"seoscan/internal/model"
)

var (
	mixpanelCallRe = regexp.MustCompile(`mixpanel\.(track_links|track_forms|time_event|track|init|identify|alias|register|reset|people\.set_once|people\.set|people\.increment)\s*\(\s*(?:"([^"]*)"|'([^']*)')?`)
	mixpanelRefRe  = regexp.MustCompile(`mixpanel(\.init|\.track|\.people|\b)`)
	gtagCallRe     = regexp.MustCompile(`gtag\s*\(\s*(?:"event"|'event')\s*,\s*(?:"([^"]*)"|'([^']*)')`)
	gtagRefRe      = regexp.MustCompile(`\bgtag\s*\(`)
	dataLayerRe    = regexp.MustCompile(`dataLayer\.push\s*\(\s*\{[^}]*event\s*:\s*(?:"([^"]*)"|'([^']*)')`)
	dataLayerRefRe = regexp.MustCompile(`dataLayer\.push`)
	mixpanelSDKRe  = regexp.MustCompile(`(?i)cdn\.mxpnl\.com|mixpanel-?\d*\.min\.js`)
	gaSDKRe        = regexp.MustCompile(`(?i)googletagmanager\.com/gtag/js|google-analytics\.com/analytics\.js`)
)

// AnalyzeTracking pattern-matches Mixpanel and Google Analytics calls
// in the raw page source, plus SDK script-tag presence, per spec.md's
// fixed vocabulary. When a platform is only referenced (SDK loaded,
// namespace touched) without a parsed call, one status=detected event
// is emitted for it.
func AnalyzeTracking(html string) []model.TrackingEvent {
	var events []model.TrackingEvent

	mixpanelCallFound := false
	for _, m := range mixpanelCallRe.FindAllStringSubmatch(html, -1) {
		mixpanelCallFound = true
		name := firstNonEmpty(m[2], m[3])
		events = append(events, model.TrackingEvent{
			Element:   "script",
			Trigger:   "load",
			Platform:  model.PlatformMixpanel,
			Status:    model.TrackingFired,
			EventName: name,
		})
	}

	gaCallFound := false
	for _, m := range gtagCallRe.FindAllStringSubmatch(html, -1) {
		gaCallFound = true
		name := firstNonEmpty(m[1], m[2])
		events = append(events, model.TrackingEvent{
			Element:   "script",
			Trigger:   "load",
			Platform:  model.PlatformGA,
			Status:    model.TrackingFired,
			EventName: name,
		})
	}
	for _, m := range dataLayerRe.FindAllStringSubmatch(html, -1) {
		gaCallFound = true
		name := firstNonEmpty(m[1], m[2])
		events = append(events, model.TrackingEvent{
			Element:   "script",
			Trigger:   "load",
			Platform:  model.PlatformGA, // dataLayer.push is grouped under ga per spec.md §9.
			Status:    model.TrackingFired,
			EventName: name,
		})
	}

	mixpanelReferenced := mixpanelRefRe.MatchString(html) || mixpanelSDKRe.MatchString(html)
	if mixpanelReferenced && !mixpanelCallFound {
		events = append(events, model.TrackingEvent{
			Element:  "script",
			Trigger:  "load",
			Platform: model.PlatformMixpanel,
			Status:   model.TrackingDetected,
		})
	}

	gaReferenced := gtagRefRe.MatchString(html) || dataLayerRefRe.MatchString(html) || gaSDKRe.MatchString(html)
	if gaReferenced && !gaCallFound {
		events = append(events, model.TrackingEvent{
			Element:  "script",
			Trigger:  "load",
			Platform: model.PlatformGA,
			Status:   model.TrackingDetected,
		})
	}

	return events
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
