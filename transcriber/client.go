package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"

	"scribe/encoder"
)

const maxErrorBody = 512

// Client posts recordings to {baseURL}/transcribe as a multipart form with a
// single "file" part and reads back {"text": "..."}.
type Client struct {
	baseURL  string
	format   string
	client   *TracedClient
	observer func(Result)
}

type Option func(*Client)

// WithFormat sets the container the recordings are in, which decides the
// part's filename and media type. Defaults to WAV.
func WithFormat(format string) Option {
	return func(c *Client) { c.format = format }
}

// WithObserver is called after every attempt, including failed ones.
func WithObserver(fn func(Result)) Option {
	return func(c *Client) { c.observer = fn }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = &TracedClient{client: hc} }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		format:  encoder.FormatWAV,
		client:  NewTracedClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Endpoint() string { return c.baseURL + "/transcribe" }

func (c *Client) BaseURL() string { return c.baseURL }

// Upload implements the session uploader: one attempt, no retry.
func (c *Client) Upload(ctx context.Context, location string) (string, error) {
	res := c.Transcribe(ctx, location)
	if c.observer != nil {
		c.observer(res)
	}
	return res.Text, res.Err
}

func (c *Client) Transcribe(ctx context.Context, location string) Result {
	res := Result{Filename: "audio." + encoder.Ext(c.format)}

	path := strings.TrimPrefix(location, "file://")
	if path == "" {
		res.Err = ErrNoAudio
		return res
	}
	audioData, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("reading recording: %w", err)
		return res
	}
	res.AudioBytes = len(audioData)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, res.Filename))
	h.Set("Content-Type", encoder.MediaType(c.format))
	part, err := writer.CreatePart(h)
	if err != nil {
		res.Err = err
		return res
	}
	if _, err := part.Write(audioData); err != nil {
		res.Err = err
		return res
	}
	if err := writer.Close(); err != nil {
		res.Err = err
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), &body)
	if err != nil {
		res.Err = err
		return res
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		res.Err = fmt.Errorf("transcribe request: %w", err)
		return res
	}
	res.StatusCode = resp.StatusCode
	res.Metrics = resp.Metrics

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(resp.Body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		res.Err = &StatusError{Code: resp.StatusCode, Body: snippet}
		return res
	}

	res.Text, res.Err = parseText(resp.Body)
	return res
}

// parseText accepts a missing or null "text" as an empty transcript and
// rejects any non-string value.
func parseText(body []byte) (string, error) {
	var payload struct {
		Text json.RawMessage `json:"text"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(payload.Text) == 0 || string(payload.Text) == "null" {
		return "", nil
	}
	var text string
	if err := json.Unmarshal(payload.Text, &text); err != nil {
		return "", fmt.Errorf("%w: text is %s", ErrMalformedResponse, payload.Text)
	}
	return text, nil
}
