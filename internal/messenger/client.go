// Package messenger is the outbound half of the platform integration: a
// Send API client plus the board-image URL scheme replies link to.
package messenger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/kapu/messenger-chess-bot/internal/domain"
	"github.com/kapu/messenger-chess-bot/pkg/botdto"
)

// Client talks to the platform's Send API over fasthttp. It satisfies both
// the router's Sink and the reminder Sender.
type Client struct {
	http     *fasthttp.Client
	sendURL  string // full Send API endpoint
	token    string
	boardURL string // base for rendered board images

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// NewClient builds a Send API client. apiBase is the platform graph root,
// boardBase the public URL under which /board renders a FEN.
func NewClient(apiBase, token, boardBase string, opts ...Option) *Client {
	c := &Client{
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		sendURL:        strings.TrimRight(apiBase, "/") + "/me/messages",
		token:          token,
		boardURL:       strings.TrimRight(boardBase, "/") + "/board",
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SendText(ctx context.Context, playerID int64, text string) error {
	return c.send(ctx, botdto.SendRequest{
		Recipient: botdto.Principal{ID: strconv.FormatInt(playerID, 10)},
		Message:   botdto.SendMessage{Text: text},
	})
}

// SendBoardImage sends the position as an image attachment. The black
// perspective rotates the board by reversing the FEN placement field, so
// the render endpoint itself stays orientation-free.
func (c *Client) SendBoardImage(ctx context.Context, playerID int64, fen string, perspective domain.Color) error {
	return c.send(ctx, botdto.SendRequest{
		Recipient: botdto.Principal{ID: strconv.FormatInt(playerID, 10)},
		Message: botdto.SendMessage{
			Attachment: &botdto.Attachment{
				Type:    "image",
				Payload: botdto.AttachmentPayload{URL: c.boardImageURL(fen, perspective)},
			},
		},
	})
}

func (c *Client) boardImageURL(fen string, perspective domain.Color) string {
	placement := strings.Fields(fen)[0]
	if perspective == domain.Black {
		placement = reverseString(placement)
	}
	return c.boardURL + "?fen=" + url.QueryEscape(placement)
}

// SendPGN delivers the game record as plain text. Messenger has no file
// type for text snippets worth the upload round trip.
func (c *Client) SendPGN(ctx context.Context, playerID int64, pgn string) error {
	return c.SendText(ctx, playerID, pgn)
}

func (c *Client) send(ctx context.Context, payload botdto.SendRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.sendURL + "?access_token=" + url.QueryEscape(c.token))
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err == nil {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				return nil
			}
			lastErr = fmt.Errorf("send api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if !shouldRetryStatus(status) {
				return lastErr
			}
		} else {
			lastErr = fmt.Errorf("send request failed: %w", err)
		}
		if attempt < attempts {
			if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
				return lastErr
			}
		}
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
