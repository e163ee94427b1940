package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindbehind/converse-go/internal/dto"
)

// Config carries the connection settings for the REST client. The session
// token is supplied by the embedding app's auth layer and treated as opaque.
type Config struct {
	BaseURL      string
	AppID        string
	UserID       string
	SessionToken string
	HTTPTimeout  time.Duration
}

// Client is the REST implementation of Transport.
type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

// NewClient builds a REST transport.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "rest_transport").Logger(),
	}
}

func (c *Client) CreateConversation(ctx context.Context) (dto.ConversationPayload, error) {
	var out dto.ConversationPayload
	path := fmt.Sprintf("/v1/apps/%s/appusers/%s/conversations", c.cfg.AppID, c.cfg.UserID)
	err := c.do(ctx, http.MethodPost, path, struct{}{}, &out)
	return out, err
}

func (c *Client) FetchConversation(ctx context.Context, id string) (dto.ConversationPayload, error) {
	var out dto.ConversationPayload
	path := fmt.Sprintf("/v1/apps/%s/appusers/%s/conversation", c.cfg.AppID, c.cfg.UserID)
	if id != "" {
		path = fmt.Sprintf("/v1/apps/%s/conversations/%s", c.cfg.AppID, id)
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) SendMessage(ctx context.Context, conversationID string, req dto.SendMessageRequest) (dto.MessagePayload, error) {
	var out struct {
		Message dto.MessagePayload `json:"message"`
	}
	path := fmt.Sprintf("/v1/apps/%s/conversations/%s/messages", c.cfg.AppID, conversationID)
	err := c.do(ctx, http.MethodPost, path, req, &out)
	return out.Message, err
}

func (c *Client) UploadMedia(ctx context.Context, conversationID string, media Media, progress ProgressFunc) (dto.MessagePayload, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("source", media.Name)
	if err != nil {
		return dto.MessagePayload{}, &APIError{Kind: KindUnhandled, Description: err.Error()}
	}
	if _, err := io.Copy(part, media.Reader); err != nil {
		return dto.MessagePayload{}, NewConnectivityError(err)
	}
	if err := writer.Close(); err != nil {
		return dto.MessagePayload{}, &APIError{Kind: KindUnhandled, Description: err.Error()}
	}

	endpoint := "images"
	if media.Kind == MediaKindFile {
		endpoint = "files"
	}
	path := fmt.Sprintf("/v1/apps/%s/conversations/%s/%s", c.cfg.AppID, conversationID, endpoint)

	reader := io.Reader(body)
	total := int64(body.Len())
	if progress != nil {
		reader = &progressReader{reader: reader, total: total, report: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, reader)
	if err != nil {
		return dto.MessagePayload{}, &APIError{Kind: KindUnhandled, Description: err.Error()}
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	var out struct {
		Message dto.MessagePayload `json:"message"`
	}
	if err := c.roundTrip(req, &out); err != nil {
		return dto.MessagePayload{}, err
	}
	return out.Message, nil
}

func (c *Client) FetchHistory(ctx context.Context, conversationID string, before time.Time, limit int) (dto.HistoryPage, error) {
	var out dto.HistoryPage
	query := url.Values{}
	if !before.IsZero() {
		query.Set("before", strconv.FormatFloat(dto.TimeToUnix(before), 'f', -1, 64))
	}
	query.Set("limit", strconv.Itoa(limit))
	path := fmt.Sprintf("/v1/apps/%s/conversations/%s/messages?%s", c.cfg.AppID, conversationID, query.Encode())
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) SendActivity(ctx context.Context, conversationID string, req dto.TypingActivityRequest) error {
	path := fmt.Sprintf("/v1/apps/%s/conversations/%s/activity", c.cfg.AppID, conversationID)
	return c.do(ctx, http.MethodPost, path, req, nil)
}

func (c *Client) SendPostback(ctx context.Context, conversationID string, req dto.PostbackRequest) error {
	path := fmt.Sprintf("/v1/apps/%s/conversations/%s/postback", c.cfg.AppID, conversationID)
	return c.do(ctx, http.MethodPost, path, req, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &APIError{Kind: KindUnhandled, Description: err.Error()}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return &APIError{Kind: KindUnhandled, Description: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	return c.roundTrip(req, out)
}

func (c *Client) roundTrip(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", req.URL.Path).Msg("transport call failed")
		return NewConnectivityError(err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("transport call")

	if resp.StatusCode >= 400 {
		detail := decodeErrorBody(resp.Body)
		return ErrorFromStatus(resp.StatusCode, detail)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Kind: KindUnhandled, Status: resp.StatusCode, Description: "malformed response: " + err.Error()}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.SessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.SessionToken)
	}
	req.Header.Set("x-converse-appid", c.cfg.AppID)
}

func decodeErrorBody(body io.Reader) string {
	var payload struct {
		Error struct {
			Description string `json:"description"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&payload); err != nil {
		return ""
	}
	return payload.Error.Description
}

// progressReader reports fractional progress as the request body is consumed.
type progressReader struct {
	reader io.Reader
	total  int64
	read   int64
	report ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 && r.total > 0 {
		r.read += int64(n)
		r.report(float64(r.read) / float64(r.total))
	}
	return n, err
}
