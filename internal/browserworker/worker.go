// Package browserworker drives a headless browser per device profile,
// injecting tracking hooks before navigation and auditing anchors for
// runtime-fired analytics calls. It is the optional fetch mode behind
// SCANNER_USE_BROWSER, complementing the static fetch in
// internal/scraper.
package browserworker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"seoscan/internal/model"
)

// DeviceProfile is one entry in the fixed viewport+UA table a Browser
// Worker call is parameterized by.
type DeviceProfile struct {
	Name      string
	Width     int
	Height    int
	Mobile    bool
	UserAgent string
}

// DeviceProfiles is the fixed table named in the component design:
// desktop, tablet, and mobile viewports with representative UAs.
var DeviceProfiles = map[string]DeviceProfile{
	"desktop": {
		Name: "desktop", Width: 1366, Height: 768, Mobile: false,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	},
	"tablet": {
		Name: "tablet", Width: 768, Height: 1024, Mobile: true,
		UserAgent: "Mozilla/5.0 (iPad; CPU OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	},
	"mobile": {
		Name: "mobile", Width: 390, Height: 844, Mobile: true,
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	},
}

const warmupWait = 4 * time.Second

// AnchorInfo is one anchor enumerated and audited by the
// browser-context script.
type AnchorInfo struct {
	URL            string            `json:"url"`
	InnerText      string            `json:"innerText"`
	Visible        bool              `json:"visible"`
	NearestHeading string            `json:"nearestHeading"`
	UTMParams      map[string]string `json:"utmParams"`
	CSSSelector    string            `json:"cssSelector"`
	TrackingConfig []rawEvent        `json:"trackingConfig"`
}

type rawEvent struct {
	Platform string         `json:"platform"`
	Type     string         `json:"type"`
	Payload  map[string]any `json:"payload"`
	Ts       float64        `json:"ts"`
}

// ScanResult is one Browser Worker call's output: the contract named
// in the component design as {html, links[], trackingEvents[]}.
type ScanResult struct {
	HTML           string
	Links          []AnchorInfo
	TrackingEvents []model.TrackingEvent
}

// Worker launches a new local Chromium process for each ScanPage call
// and closes it when the call returns; no browser process is shared
// between calls.
type Worker struct {
	Timeout time.Duration
}

// New creates a Worker with the given per-call timeout.
func New(timeout time.Duration) *Worker {
	return &Worker{Timeout: timeout}
}

// ScanPage opens a fresh browsing context for profileName, injects the
// tracking hook ahead of navigation, navigates to targetURL, waits for
// SDK warm-up, then enumerates and audits anchors before reading back
// the runtime tracking log.
func (w *Worker) ScanPage(ctx context.Context, targetURL, profileName string) (*ScanResult, error) {
	profile, ok := DeviceProfiles[profileName]
	if !ok {
		profile = DeviceProfiles["desktop"]
	}

	browser, err := newLocalBrowser(ctx, w.Timeout)
	if err != nil {
		return nil, fmt.Errorf("browserworker: launch: %w", err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("browserworker: open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: profile.Width, Height: profile.Height, DeviceScaleFactor: 1, Mobile: profile.Mobile,
	}); err != nil {
		return nil, fmt.Errorf("browserworker: set viewport: %w", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: profile.UserAgent}); err != nil {
		return nil, fmt.Errorf("browserworker: set user agent: %w", err)
	}
	if _, err := page.EvalOnNewDocument(trackingHookScript); err != nil {
		return nil, fmt.Errorf("browserworker: install hook: %w", err)
	}

	if err := page.Navigate(targetURL); err != nil {
		return nil, fmt.Errorf("browserworker: navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("browserworker: wait load: %w", err)
	}
	if err := page.WaitIdle(w.Timeout); err != nil {
		// network-idle is a best-effort wait; a page with long polling
		// connections should not fail the scan.
	}

	time.Sleep(warmupWait)

	baseline, err := trackingLogLength(page)
	if err != nil {
		baseline = 0
	}

	anchors, err := auditAnchors(page, baseline)
	if err != nil {
		return nil, fmt.Errorf("browserworker: audit anchors: %w", err)
	}

	htmlStr, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("browserworker: read html: %w", err)
	}

	events, err := readTrackingLog(page)
	if err != nil {
		return nil, fmt.Errorf("browserworker: read tracking log: %w", err)
	}

	trackingEvents := eventsFromAudit(anchors, events, profile.Name)

	for i := range anchors {
		anchors[i].TrackingConfig = nil
	}

	return &ScanResult{
		HTML:           htmlStr,
		Links:          anchors,
		TrackingEvents: trackingEvents,
	}, nil
}

func trackingLogLength(page *rod.Page) (int, error) {
	obj, err := page.Eval(`() => (window.__trackingLog || []).length`)
	if err != nil {
		return 0, err
	}
	return obj.Value.Int(), nil
}

func auditAnchors(page *rod.Page, baseline int) ([]AnchorInfo, error) {
	obj, err := page.Eval(anchorAuditScript, baseline)
	if err != nil {
		return nil, err
	}
	var anchors []AnchorInfo
	if err := obj.Value.Unmarshal(&anchors); err != nil {
		return nil, err
	}
	return anchors, nil
}

func readTrackingLog(page *rod.Page) ([]rawEvent, error) {
	obj, err := page.Eval(`() => window.__trackingLog || []`)
	if err != nil {
		return nil, err
	}
	var events []rawEvent
	if err := obj.Value.Unmarshal(&events); err != nil {
		return nil, err
	}
	return events, nil
}

// eventsFromAudit converts the raw hook-captured log into
// model.TrackingEvent rows, attributing anchor-scoped entries
// (collected during the active click audit) to their anchor's
// element/cssSelector and leaving page-load-scoped entries unattributed.
func eventsFromAudit(anchors []AnchorInfo, pageLog []rawEvent, deviceVariant string) []model.TrackingEvent {
	var out []model.TrackingEvent
	attributed := make(map[string]int)
	key := func(ev rawEvent) string { return fmt.Sprint(ev.Ts, "|", ev.Platform, "|", ev.Type) }

	for _, a := range anchors {
		for _, ev := range a.TrackingConfig {
			attributed[key(ev)]++
			out = append(out, model.TrackingEvent{
				Element:       a.CSSSelector,
				Trigger:       "click",
				Platform:      platformOf(ev.Platform),
				Status:        model.TrackingFired,
				EventName:     eventNameOf(ev),
				DeviceVariant: deviceVariant,
				Payload:       ev.Payload,
			})
		}
	}

	// pageLog holds every event fired since the hook was installed,
	// including the clicks already attributed above; those are matched
	// out by timestamp/platform/type, and everything else fired outside
	// the active audit (on load, or from page scripts unrelated to
	// anchors) and is reported unattributed.
	for _, ev := range pageLog {
		if k := key(ev); attributed[k] > 0 {
			attributed[k]--
			continue
		}
		out = append(out, model.TrackingEvent{
			Element:       "",
			Trigger:       "load",
			Platform:      platformOf(ev.Platform),
			Status:        model.TrackingFired,
			EventName:     eventNameOf(ev),
			DeviceVariant: deviceVariant,
			Payload:       ev.Payload,
		})
	}

	return out
}

func platformOf(raw string) model.TrackingPlatform {
	if raw == "ga" {
		return model.PlatformGA
	}
	return model.PlatformMixpanel
}

func eventNameOf(ev rawEvent) string {
	args, ok := ev.Payload["args"].([]any)
	if !ok || len(args) == 0 {
		return strings.TrimSpace(ev.Type)
	}

	switch ev.Type {
	case "track":
		if s, ok := args[0].(string); ok {
			return s
		}
	case "gtag":
		if len(args) > 1 {
			if s, ok := args[1].(string); ok {
				return s
			}
		}
	}
	return strings.TrimSpace(ev.Type)
}

func newLocalBrowser(ctx context.Context, timeout time.Duration) (*rod.Browser, error) {
	var l *launcher.Launcher
	if path, has := launcher.LookPath(); has {
		l = launcher.New().Bin(path)
	} else {
		l = launcher.New()
	}
	l = l.Headless(true).NoSandbox(true)

	u, err := l.Launch()
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(u).Context(ctx).Timeout(timeout)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, err
	}
	return browser, nil
}
