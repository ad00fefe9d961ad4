package canvas

import (
	"net/url"
	"strings"
)

// Pagination holds the page tokens advertised by a Canvas Link header.
// Tokens are page numbers or bookmarks, to be passed back as the page
// parameter.
type Pagination struct {
	Current string `json:"current,omitempty"`
	Next    string `json:"next,omitempty"`
	Prev    string `json:"prev,omitempty"`
	First   string `json:"first,omitempty"`
	Last    string `json:"last,omitempty"`
}

// ParseLinkHeader extracts page tokens from an RFC 8288 Link header.  It
// returns nil when no known relation carries a page.
func ParseLinkHeader(header string) *Pagination {
	if header == "" {
		return nil
	}

	p := &Pagination{}
	found := false

	for _, link := range strings.Split(header, ",") {
		parts := strings.Split(link, ";")
		if len(parts) < 2 {
			continue
		}

		target := strings.TrimSpace(parts[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}

		u, err := url.Parse(target[1 : len(target)-1])
		if err != nil {
			continue
		}
		page := u.Query().Get(ParamPage)
		if page == "" {
			continue
		}

		for _, attr := range parts[1:] {
			key, val, ok := strings.Cut(strings.TrimSpace(attr), "=")
			if !ok || !strings.EqualFold(key, "rel") {
				continue
			}

			for _, rel := range strings.Fields(strings.Trim(val, `"`)) {
				switch strings.ToLower(rel) {
				case "current":
					p.Current = page
				case "next":
					p.Next = page
				case "prev":
					p.Prev = page
				case "first":
					p.First = page
				case "last":
					p.Last = page
				default:
					continue
				}
				found = true
			}
		}
	}

	if !found {
		return nil
	}
	return p
}
