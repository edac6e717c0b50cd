package browserworker

import "testing"

func TestPlatformOf(t *testing.T) {
	if platformOf("ga") != "ga" {
		t.Errorf("expected ga platform")
	}
	if platformOf("mixpanel") != "mixpanel" {
		t.Errorf("expected mixpanel platform")
	}
	if platformOf("") != "mixpanel" {
		t.Errorf("expected mixpanel default for unknown platform")
	}
}

func TestEventNameOf(t *testing.T) {
	track := rawEvent{Type: "track", Payload: map[string]any{"args": []any{"Signed Up", map[string]any{}}}}
	if got := eventNameOf(track); got != "Signed Up" {
		t.Errorf("track eventName = %q, want Signed Up", got)
	}

	gtag := rawEvent{Type: "gtag", Payload: map[string]any{"args": []any{"event", "purchase", map[string]any{}}}}
	if got := eventNameOf(gtag); got != "purchase" {
		t.Errorf("gtag eventName = %q, want purchase", got)
	}

	init := rawEvent{Type: "init", Payload: map[string]any{"args": []any{"token"}}}
	if got := eventNameOf(init); got != "init" {
		t.Errorf("init eventName = %q, want init", got)
	}
}

func TestEventsFromAudit_AttributesClicksAndLoad(t *testing.T) {
	anchors := []AnchorInfo{
		{
			CSSSelector: "a.cta",
			TrackingConfig: []rawEvent{
				{Platform: "mixpanel", Type: "track", Payload: map[string]any{"args": []any{"Clicked"}}},
			},
		},
	}
	pageLog := []rawEvent{
		{Platform: "mixpanel", Type: "track", Payload: map[string]any{"args": []any{"Clicked"}}},
		{Platform: "ga", Type: "gtag", Payload: map[string]any{"args": []any{"event", "page_view"}}},
	}

	events := eventsFromAudit(anchors, pageLog, "desktop")
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Trigger != "click" || events[0].Element != "a.cta" {
		t.Errorf("expected first event attributed to anchor click, got %+v", events[0])
	}
	if events[1].Trigger != "load" || events[1].EventName != "page_view" {
		t.Errorf("expected second event as unattributed load event, got %+v", events[1])
	}
}

func TestDeviceProfiles_FixedTable(t *testing.T) {
	for _, name := range []string{"desktop", "tablet", "mobile"} {
		p, ok := DeviceProfiles[name]
		if !ok {
			t.Fatalf("missing device profile %q", name)
		}
		if p.Width == 0 || p.Height == 0 || p.UserAgent == "" {
			t.Errorf("profile %q incomplete: %+v", name, p)
		}
	}
}
