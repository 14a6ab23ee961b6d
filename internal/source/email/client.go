package email

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/source"
)

// IMAPClient wraps go-imap v2 for connecting to an IMAP server and opening
// a mailbox session.
type IMAPClient struct {
	host    string
	port    string
	tls     bool
	mailbox string
	logger  *log.Logger
}

// NewIMAPClient creates a new IMAP client from the imap config section.
func NewIMAPClient(cfg model.IMAPConfig, logger *log.Logger) *IMAPClient {
	mailbox := cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	return &IMAPClient{
		host:    cfg.Host,
		port:    strconv.Itoa(cfg.Port),
		tls:     cfg.TLS,
		mailbox: mailbox,
		logger:  logger.WithPrefix("imap"),
	}
}

// Addr returns the host:port the client dials.
func (c *IMAPClient) Addr() string {
	return c.host + ":" + c.port
}

// Connect establishes a connection to the IMAP server, authenticates and
// selects the configured mailbox. The caller must Close the returned
// session.
func (c *IMAPClient) Connect(
	ctx context.Context, creds source.Credentials,
) (source.Mailbox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := c.Addr()

	var client *imapclient.Client
	var err error

	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(creds.Address, creds.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		_ = client.Close()
		return nil, &source.AuthError{
			Server: addr,
			Message: fmt.Sprintf(
				"authentication failed for %s: %v",
				creds.Address, err,
			),
		}
	}

	if _, err := client.Select(c.mailbox, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		_ = client.Close()
		return nil, fmt.Errorf("selecting %s: %w", c.mailbox, err)
	}

	c.logger.Info("connected", "server", addr, "mailbox", c.mailbox)

	return &Session{client: client, logger: c.logger}, nil
}

// Session is an authenticated IMAP connection with a selected mailbox.
type Session struct {
	client *imapclient.Client
	logger *log.Logger
}

// Search runs each criterion as its own UID SEARCH and returns the union of
// the results. A failing criterion is reported as *source.SearchError and
// skipped.
func (s *Session) Search(
	ctx context.Context, criteria []source.Criterion, since time.Time,
) ([]uint32, []error) {
	var (
		sets [][]uint32
		errs []error
	)

	for _, crit := range criteria {
		if err := ctx.Err(); err != nil {
			errs = append(errs, &source.SearchError{Criterion: crit, Err: err})
			break
		}

		data, err := s.client.UIDSearch(searchCriteria(crit, since), nil).Wait()
		if err != nil {
			serr := &source.SearchError{Criterion: crit, Err: err}
			s.logger.Warn("search failed", "criterion", crit.String(), "err", err)
			errs = append(errs, serr)
			continue
		}

		uids := data.AllUIDs()
		found := make([]uint32, len(uids))
		for i, uid := range uids {
			found[i] = uint32(uid)
		}
		s.logger.Debug("search",
			"criterion", crit.String(),
			"since", SinceDate(since),
			"matches", len(found),
		)
		sets = append(sets, found)
	}

	return source.MergeUIDs(sets...), errs
}

// Fetch retrieves the full message with uid using BODY.PEEK[] so the
// message is not marked as seen.
func (s *Session) Fetch(ctx context.Context, uid uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &source.FetchError{UID: uid, Err: err}
	}

	uidSet := imap.UIDSetNum(imap.UID(uid))

	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}

	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := s.client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, &source.FetchError{UID: uid, Err: fmt.Errorf("message not found")}
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, &source.FetchError{UID: uid, Err: fmt.Errorf("collecting message data: %w", err)}
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, &source.FetchError{UID: uid, Err: fmt.Errorf("empty body section")}
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, &source.FetchError{UID: uid, Err: fmt.Errorf("closing fetch: %w", err)}
	}

	return raw, nil
}

// Close logs out and closes the connection.
func (s *Session) Close() error {
	logoutErr := s.client.Logout().Wait()
	closeErr := s.client.Close()
	s.logger.Info("disconnected")
	if logoutErr != nil {
		return fmt.Errorf("logging out: %w", logoutErr)
	}
	return closeErr
}

// Probe connects, selects the mailbox and disconnects. It backs the
// test-connection command.
func (c *IMAPClient) Probe(ctx context.Context, creds source.Credentials) error {
	mb, err := c.Connect(ctx, creds)
	if err != nil {
		return err
	}
	return mb.Close()
}
