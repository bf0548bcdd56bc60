// Package tempmail is the HTTP client for the disposable-mail backend.
package tempmail

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/nhle/tempmail/internal/model"
)

// NoMailSentinel is the value of the "mail" field when nothing is pending.
// It is part of the wire contract and must not be translated.
const NoMailSentinel = "没有邮件"

// maxBodyBytes caps a single response; HTML mail can be large but not this large.
const maxBodyBytes = 8 << 20

// Client is a thin HTTP client for the backend's two read endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewClient creates a client for the backend rooted at baseURL. The timeout
// bounds each HTTP exchange; callers may impose a shorter one through ctx.
func NewClient(baseURL string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// AllowedDomains returns the domains the backend accepts mail for. An empty
// list is a valid, degraded answer.
func (c *Client) AllowedDomains(ctx context.Context) ([]string, error) {
	js, err := c.get(ctx, "/getAllowedDomains")
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "fetching allowed domains"), ErrDomainFetch)
	}

	node, ok := js.CheckGet("allowedDomains")
	if !ok {
		return []string{}, nil
	}
	raw, err := node.StringArray()
	if err != nil {
		return nil, errors.Mark(
			errors.Wrap(err, "decoding allowedDomains"), ErrDomainFetch,
		)
	}

	domains := make([]string, 0, len(raw))
	for _, d := range raw {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	return domains, nil
}

// Poll asks for the next pending message of mailbox. It returns (nil, nil)
// when the backend reports nothing pending. The backend removes the message
// it returns, so each call yields at most one message.
func (c *Client) Poll(ctx context.Context, mailbox model.Mailbox) (*model.Message, error) {
	js, err := c.get(ctx, "/getMail/"+EscapeAddress(mailbox.String()))
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "polling %s", mailbox), ErrFetch)
	}

	msg, err := decodeMail(js)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "polling %s", mailbox), ErrFetch)
	}
	if msg != nil {
		c.logger.Debugw("message received", "mailbox", mailbox.String(), "from", msg.From)
	}
	return msg, nil
}

// decodeMail interprets the polymorphic "mail" field: the sentinel string
// means no message, an object is a message.
func decodeMail(js *simplejson.Json) (*model.Message, error) {
	node, ok := js.CheckGet("mail")
	if !ok {
		return nil, errors.New(`response has no "mail" field`)
	}

	if s, err := node.String(); err == nil {
		if s == NoMailSentinel || s == "" {
			return nil, nil
		}
		return nil, errors.Newf("unexpected mail value %q", s)
	}

	if _, err := node.Map(); err != nil {
		return nil, errors.Wrap(err, `decoding "mail"`)
	}

	return &model.Message{
		From:     node.Get("from").MustString(),
		Title:    node.Get("title").MustString(),
		HTMLBody: node.Get("HtmlContent").MustString(),
		TextBody: node.Get("TextContent").MustString(),
	}, nil
}

// get performs a GET against path and parses the JSON body.
func (c *Client) get(ctx context.Context, path string) (*simplejson.Json, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "executing request GET %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := &StatusError{Status: resp.StatusCode}
		if js, jerr := simplejson.NewJson(body); jerr == nil {
			serr.Message = js.Get("error").MustString()
		}
		return nil, errors.WithStack(serr)
	}

	js, err := simplejson.NewJson(body)
	if err != nil {
		return nil, errors.Wrapf(err, "unmarshaling response from GET %s", path)
	}
	return js, nil
}

// EscapeAddress encodes an address the way the browser's
// encodeURIComponent does for the characters an address can contain, so
// requests are byte-identical to the reference web client's.
func EscapeAddress(address string) string {
	return strings.ReplaceAll(url.PathEscape(address), "@", "%40")
}
