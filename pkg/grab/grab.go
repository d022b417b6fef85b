// Package grab downloads documents given by URL so they can be analyzed like local files.
package grab

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"DocForensics/pkg/errs"
)

const userAgent = "DocForensics/1.0"

// Download is a fetched document held in memory
type Download struct {
	URL         string
	Filename    string
	ContentType string
	Data        []byte
}

// Grabber fetches documents over HTTP(S) with a size cap
type Grabber struct {
	Client  *http.Client
	MaxSize int64
}

// New creates a grabber whose requests are bounded by timeout and maxSize bytes
func New(timeout time.Duration, maxSize int64) *Grabber {
	return &Grabber{
		Client:  &http.Client{Timeout: timeout},
		MaxSize: maxSize,
	}
}

// IsURL reports whether s looks like an http or https URL
func IsURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Fetch downloads rawURL into memory
func (g *Grabber) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errs.New(errs.KindInvalidArgument, "grab", fmt.Sprintf("not an http(s) URL: %q", rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidArgument, "grab", "failed to build request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "grab", "HTTP request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.New(errs.KindIO, "grab", fmt.Sprintf("unexpected status %s from %s", resp.Status, u.Redacted()))
	}
	if g.MaxSize > 0 && resp.ContentLength > g.MaxSize {
		return nil, errs.New(errs.KindIO, "grab", fmt.Sprintf("document too large: %d bytes (max %d)", resp.ContentLength, g.MaxSize))
	}

	body := io.Reader(resp.Body)
	if g.MaxSize > 0 {
		body = io.LimitReader(resp.Body, g.MaxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "grab", "failed to read response body", err)
	}
	if g.MaxSize > 0 && int64(len(data)) > g.MaxSize {
		return nil, errs.New(errs.KindIO, "grab", fmt.Sprintf("document too large: more than %d bytes", g.MaxSize))
	}

	contentType := resp.Header.Get("Content-Type")
	return &Download{
		URL:         rawURL,
		Filename:    filenameFor(resp, u, contentType),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// filenameFor picks a display name: Content-Disposition, then the last path segment, then the media type
func filenameFor(resp *http.Response, u *url.URL, contentType string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := path.Base(params["filename"]); name != "" && name != "." && name != "/" {
				return name
			}
		}
	}

	if name := path.Base(u.Path); name != "" && name != "." && name != "/" {
		return name
	}

	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			return "download" + exts[0]
		}
	}
	return "download"
}

// ReadURLList reads one URL per line, skipping blank lines and # comments
func ReadURLList(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL list: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}
	return urls, nil
}
