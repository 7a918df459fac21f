package hkex

import (
	"strings"

	"github.com/samber/lo"
)

const (
	// DocumentBaseURL is prepended to relative document paths from the feed.
	DocumentBaseURL = "https://www1.hkexnews.hk/app/"
	// IndexURL is the public listing index page referenced in alerts.
	IndexURL = "https://www1.hkexnews.hk/app/appindex.html?lang=zh"
)

// Listing is a single entry from the HKEX new-listing feed. The monitor only
// interprets the ID and document links; everything else is carried through to
// notifications untouched.
type Listing struct {
	ID          int64          `json:"id"`
	Name        string         `json:"a"`
	ListingDate string         `json:"d"`
	Status      string         `json:"s"`
	PostingDate string         `json:"postingDate"`
	HasPHIP     bool           `json:"hasPhip"`
	Documents   []DocumentLink `json:"ls"`
}

// DocumentLink is one document entry attached to a listing. The feed exposes
// several candidate name and URL fields per document.
type DocumentLink struct {
	Date string `json:"d"`
	NS1  string `json:"nS1"`
	NS2  string `json:"nS2"`
	NF   string `json:"nF"`
	U1   string `json:"u1"`
	U2   string `json:"u2"`
}

// URL returns the preferred document URL: the multi-file HTML link when
// present, otherwise the full-document PDF. Empty when the entry carries
// neither.
func (d DocumentLink) URL() string {
	if d.U2 != "" {
		return resolveDocumentURL(d.U2)
	}
	if d.U1 != "" {
		return resolveDocumentURL(d.U1)
	}
	return ""
}

// Title returns the preferred display name for the document.
func (d DocumentLink) Title() string {
	for _, name := range []string{d.NS2, d.NS1, d.NF} {
		if name != "" {
			return name
		}
	}
	return "Document"
}

// DocumentRefs extracts the listing's document references in feed order,
// dropping entries without a usable URL and collapsing duplicates.
func (l Listing) DocumentRefs() []string {
	refs := make([]string, 0, len(l.Documents))
	for _, doc := range l.Documents {
		if url := doc.URL(); url != "" {
			refs = append(refs, url)
		}
	}
	return lo.Uniq(refs)
}

func resolveDocumentURL(raw string) string {
	if strings.HasPrefix(raw, "http") {
		return raw
	}
	return DocumentBaseURL + strings.TrimPrefix(raw, "/")
}

var statusNames = map[string]string{
	"A": "Active (Application Proof)",
	"I": "Inactive",
	"W": "Withdrawn",
}

// StatusText expands the feed's single-letter status codes. Unknown codes are
// returned as-is.
func StatusText(code string) string {
	if name, ok := statusNames[code]; ok {
		return name
	}
	return code
}
