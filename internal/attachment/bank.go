package attachment

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/nhle/card-statements/internal/model"
)

// bankPatterns is ordered by priority: when a sender contains several
// patterns the earliest entry wins.
var bankPatterns = []struct {
	pattern string
	bank    model.Bank
}{
	{"hdfc", model.BankHDFC},
	{"idfc", model.BankIDFC},
	{"axis", model.BankAxis},
	{"sbi", model.BankSBI},
	{"icici", model.BankICICI},
	{"kotak", model.BankKotak},
	{"citi", model.BankCiti},
	{"americanexpress", model.BankAmex},
	{"amex", model.BankAmex},
	{"yesbank", model.BankYes},
	{"indusind", model.BankIndusInd},
}

var bankMatcher = func() *ahocorasick.Matcher {
	patterns := make([]string, len(bankPatterns))
	for i, p := range bankPatterns {
		patterns[i] = p.pattern
	}
	return ahocorasick.NewStringMatcher(patterns)
}()

// IdentifyBank maps a sender address to a bank tag by case-insensitive
// substring match. Unmatched senders are BankUnknown.
func IdentifyBank(sender string) model.Bank {
	hits := bankMatcher.Match([]byte(strings.ToLower(sender)))
	if len(hits) == 0 {
		return model.BankUnknown
	}

	best := hits[0]
	for _, h := range hits[1:] {
		if h < best {
			best = h
		}
	}
	return bankPatterns[best].bank
}
