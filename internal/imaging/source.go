package imaging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// Source resolves to the raw encoded bytes of one raster image.
//
// Byte uploads, files already persisted on disk, and remote URLs are all
// Sources, so every caller funnels into the same decode and search pipeline.
type Source interface {
	// Load returns the encoded image bytes. Failures are reported as
	// *SourceUnavailableError.
	Load(ctx context.Context) ([]byte, error)

	// Describe returns a short human-readable identifier used in errors and logs.
	Describe() string
}

// BytesSource is image data already held in memory, such as an upload body.
type BytesSource struct {
	Name string
	Data []byte
}

// Load returns the in-memory bytes. An empty buffer is reported as unavailable.
func (s BytesSource) Load(_ context.Context) ([]byte, error) {
	if len(s.Data) == 0 {
		return nil, &SourceUnavailableError{Source: s.Describe(), Err: errors.New("empty image data")}
	}
	return s.Data, nil
}

func (s BytesSource) Describe() string {
	if s.Name != "" {
		return fmt.Sprintf("bytes:%s (%d bytes)", s.Name, len(s.Data))
	}
	return fmt.Sprintf("bytes (%d bytes)", len(s.Data))
}

// FileSource is an image persisted on the local filesystem, for example a
// page rendered while converting a document.
type FileSource struct {
	Path string
}

// Load reads the file at Path.
func (s FileSource) Load(_ context.Context) ([]byte, error) {
	stat, err := os.Stat(s.Path)
	if err != nil {
		return nil, &SourceUnavailableError{Source: s.Describe(), Err: err}
	}
	if stat.IsDir() {
		return nil, &SourceUnavailableError{Source: s.Describe(), Err: errors.New("path is a directory")}
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &SourceUnavailableError{Source: s.Describe(), Err: err}
	}
	if len(data) == 0 {
		return nil, &SourceUnavailableError{Source: s.Describe(), Err: errors.New("file is empty")}
	}
	return data, nil
}

func (s FileSource) Describe() string {
	return "file:" + s.Path
}

// DefaultFetchTimeout bounds a URLSource fetch when no timeout is configured.
const DefaultFetchTimeout = 30 * time.Second

// URLSource is an image fetched over HTTP(S).
type URLSource struct {
	URL     string
	Timeout time.Duration

	// Client overrides the HTTP client. When nil a client with Timeout is created.
	Client *resty.Client
}

// Load fetches the URL. Transport errors and non-2xx responses are reported
// as unavailable.
func (s URLSource) Load(ctx context.Context) ([]byte, error) {
	client := s.Client
	if client == nil {
		timeout := s.Timeout
		if timeout <= 0 {
			timeout = DefaultFetchTimeout
		}
		client = resty.New().SetTimeout(timeout)
	}

	resp, err := client.R().SetContext(ctx).Get(s.URL)
	if err != nil {
		return nil, &SourceUnavailableError{Source: s.Describe(), Err: err}
	}
	if resp.IsError() {
		return nil, &SourceUnavailableError{
			Source: s.Describe(),
			Err:    fmt.Errorf("unexpected response status %s", resp.Status()),
		}
	}

	data := resp.Body()
	if len(data) == 0 {
		return nil, &SourceUnavailableError{Source: s.Describe(), Err: errors.New("empty response body")}
	}
	return data, nil
}

func (s URLSource) Describe() string {
	return "url:" + s.URL
}
