package email

import (
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"

	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/source"
	"github.com/nhle/card-statements/internal/testutil"
)

func TestBuildCriteria(t *testing.T) {
	cfg := model.SearchConfig{
		HDFCSenders:     []string{"creditcards@hdfcbank.net"},
		IDFCSenders:     []string{"statements@idfcfirstbank.com", ""},
		SubjectKeywords: []string{"statement", "statement", "bill"},
		BodyPhrases:     []string{"HDFC Credit Card"},
	}

	got := BuildCriteria(cfg)

	assert.Equal(t, []source.Criterion{
		{From: "creditcards@hdfcbank.net"},
		{From: "statements@idfcfirstbank.com"},
		{Subject: "statement"},
		{Subject: "bill"},
		{Body: "HDFC Credit Card"},
		{Subject: "statement", Body: "credit card"},
	}, got)
}

func TestBuildCriteria_Defaults(t *testing.T) {
	got := BuildCriteria(model.DefaultConfig().SearchCriteria)

	// 6 senders, 7 subject keywords, 2 body phrases, 1 combined query.
	assert.Len(t, got, 16)
}

func TestSearchCriteria(t *testing.T) {
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	sc := searchCriteria(source.Criterion{
		From:    "creditcards@hdfcbank.net",
		Subject: "statement",
		Body:    "credit card",
	}, since)

	assert.Equal(t, since, sc.Since)
	assert.Equal(t, []imap.SearchCriteriaHeaderField{
		{Key: "From", Value: "creditcards@hdfcbank.net"},
		{Key: "Subject", Value: "statement"},
	}, sc.Header)
	assert.Equal(t, []string{"credit card"}, sc.Body)
}

func TestSinceDate(t *testing.T) {
	assert.Equal(t, "05-Mar-2024", SinceDate(time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)))
}

func TestNewIMAPClient(t *testing.T) {
	c := NewIMAPClient(model.IMAPConfig{Host: "imap.example.com", Port: 993, TLS: true}, testutil.DiscardLogger())

	assert.Equal(t, "imap.example.com:993", c.Addr())
	assert.Equal(t, "INBOX", c.mailbox)
}
