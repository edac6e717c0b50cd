package scrapeutil

import (
	"net/url"
	"strings"
)

// ToString safely converts an interface value to string.
func ToString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// FilterLinks applies basic link filters based on configuration.
// sameDomainOnly restricts links to those matching the base URL's host.
// maxPerDocument > 0 limits the number of links returned.
func FilterLinks(links []string, baseURL string, sameDomainOnly bool, maxPerDocument int) []string {
	if len(links) == 0 {
		return links
	}

	filtered := make([]string, 0, len(links))

	var baseHost string
	if sameDomainOnly {
		if u, err := url.Parse(baseURL); err == nil {
			baseHost = strings.ToLower(u.Hostname())
		} else {
			// If base URL is invalid, skip same-domain filtering but still apply maxPerDocument.
			sameDomainOnly = false
		}
	}

	for _, link := range links {
		if link == "" {
			continue
		}

		if sameDomainOnly {
			lu, err := url.Parse(link)
			if err != nil {
				continue
			}
			if strings.ToLower(lu.Hostname()) != baseHost {
				continue
			}
		}

		filtered = append(filtered, link)
		if maxPerDocument > 0 && len(filtered) >= maxPerDocument {
			break
		}
	}

	return filtered
}
