// Package client implements the upload client used by the PicUp CLI.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Envelope mirrors the server's wire envelope for a URL-list payload.
type Envelope struct {
	Code int       `json:"code"`
	Msg  string    `json:"msg"`
	Data *[]string `json:"data"`
}

// Client uploads files to a PicUp server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the server at baseURL authenticating with token.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Upload posts the files at paths to the given category as one batch and
// returns the public URL of each uploaded file in input order. A non-OK
// envelope code is returned as an error carrying the server's message.
func (c *Client) Upload(ctx context.Context, category string, override bool, paths []string) ([]string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeParts(mw, paths))
	}()

	query := url.Values{}
	query.Set("access_token", c.token)
	query.Set("category", category)
	query.Set("override", strconv.FormatBool(override))
	query.Set("compress", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload?"+query.Encode(), pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	var envelope Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if envelope.Code != 0 {
		return nil, fmt.Errorf("upload rejected (code %d): %s", envelope.Code, envelope.Msg)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("malformed response: ok without data")
	}
	return *envelope.Data, nil
}

// writeParts streams each file as one multipart part, closing the writer
// on success so the request body is terminated properly.
func writeParts(mw *multipart.Writer, paths []string) error {
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		part, err := mw.CreatePart(partHeader(filepath.Base(path)))
		if err != nil {
			f.Close()
			return err
		}
		if _, err := io.Copy(part, f); err != nil {
			f.Close()
			return fmt.Errorf("read %s: %w", path, err)
		}
		f.Close()
	}
	return mw.Close()
}

func partHeader(filename string) textproto.MIMEHeader {
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	return h
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
