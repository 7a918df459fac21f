package notify

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/bakkerme/hkex-watch/internal/hkex"
)

// RenderMarkdown formats an alert as a Telegram-flavored Markdown message.
// Updated alerts use a distinct header and list only the documents that
// appeared this cycle.
func RenderMarkdown(alert Alert) string {
	var b strings.Builder

	switch alert.Kind {
	case KindUpdated:
		b.WriteString("📄 *HKEX Listing Updated*\n\n")
	default:
		b.WriteString("🚨 *New HKEX Listing Detected!*\n\n")
	}

	listing := alert.Listing
	fmt.Fprintf(&b, "*Company:* %s\n", orUnknown(listing.Name, "Unknown Company"))
	fmt.Fprintf(&b, "*Listing Date:* %s\n", orUnknown(listing.ListingDate, "Unknown Date"))
	fmt.Fprintf(&b, "*Status:* %s\n", orUnknown(hkex.StatusText(listing.Status), "Unknown"))
	fmt.Fprintf(&b, "*ID:* `%d`\n", listing.ID)
	fmt.Fprintf(&b, "*Posted:* %s\n", orUnknown(listing.PostingDate, "Unknown"))
	fmt.Fprintf(&b, "*Has PHIP:* %s\n", yesNo(listing.HasPHIP))

	if alert.Kind == KindUpdated {
		b.WriteString("\n📄 *New Documents:*\n")
	} else {
		b.WriteString("\n📄 *Documents:*\n")
	}

	links := documentLines(alert)
	if len(links) == 0 {
		b.WriteString("• No documents available")
	} else {
		b.WriteString(strings.Join(links, "\n"))
	}

	fmt.Fprintf(&b, "\n\n[View All Listings](%s)\n", hkex.IndexURL)
	fmt.Fprintf(&b, "\n_Detected at: %s_", alert.DetectedAt.Format("2006-01-02 15:04:05"))

	return b.String()
}

// documentLines builds the bulleted link list. New alerts show every document
// on the listing; updated alerts only the refs that triggered the alert.
func documentLines(alert Alert) []string {
	include := func(url string) bool { return true }
	if alert.Kind == KindUpdated {
		include = func(url string) bool { return lo.Contains(alert.NewRefs, url) }
	}

	lines := make([]string, 0, len(alert.Listing.Documents))
	seen := map[string]bool{}
	for _, doc := range alert.Listing.Documents {
		url := doc.URL()
		if url == "" || seen[url] || !include(url) {
			continue
		}
		seen[url] = true
		lines = append(lines, fmt.Sprintf("• [%s](%s)", doc.Title(), url))
	}
	return lines
}

func orUnknown(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}
