package email

import (
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/source"
)

// sinceLayout is the IMAP date format (DD-Mon-YYYY).
const sinceLayout = "02-Jan-2006"

// SinceDate formats t as an IMAP SEARCH date.
func SinceDate(t time.Time) string {
	return t.Format(sinceLayout)
}

// BuildCriteria expands the search config into independent criteria: one
// per sender, one per subject keyword, one per body phrase and a combined
// statement/credit card query. Duplicates are dropped.
func BuildCriteria(cfg model.SearchConfig) []source.Criterion {
	var out []source.Criterion
	seen := make(map[source.Criterion]bool)
	add := func(c source.Criterion) {
		if seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
	}

	for _, sender := range cfg.Senders() {
		if sender != "" {
			add(source.Criterion{From: sender})
		}
	}
	for _, kw := range cfg.SubjectKeywords {
		if kw != "" {
			add(source.Criterion{Subject: kw})
		}
	}
	for _, phrase := range cfg.BodyPhrases {
		if phrase != "" {
			add(source.Criterion{Body: phrase})
		}
	}
	add(source.Criterion{Subject: "statement", Body: "credit card"})

	return out
}

// searchCriteria converts c into a go-imap search restricted to messages
// since the given date.
func searchCriteria(c source.Criterion, since time.Time) *imap.SearchCriteria {
	sc := &imap.SearchCriteria{Since: since}
	if c.From != "" {
		sc.Header = append(sc.Header, imap.SearchCriteriaHeaderField{Key: "From", Value: c.From})
	}
	if c.Subject != "" {
		sc.Header = append(sc.Header, imap.SearchCriteriaHeaderField{Key: "Subject", Value: c.Subject})
	}
	if c.Body != "" {
		sc.Body = append(sc.Body, c.Body)
	}
	return sc
}
