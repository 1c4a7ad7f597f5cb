package scripture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultRequestTimeout = 15 * time.Second

var (
	// ErrMissingBaseURL indicates that the passage client has no upstream configured.
	ErrMissingBaseURL = errors.New("scripture: bible api base url required")
	// ErrUpstreamFailure indicates that the upstream text API returned a non-success status.
	ErrUpstreamFailure = errors.New("scripture: bible api request failed")
)

// ClientConfig bundles configuration for the external Bible-text API client.
type ClientConfig struct {
	BaseURL            string
	DefaultTranslation string
	HTTPClient         *http.Client
	Logger             *zap.Logger
}

// Client fetches passage text from an external Bible API. Failures surface
// directly to the caller; there is no retry policy.
type Client struct {
	baseURL            string
	defaultTranslation string
	httpClient         *http.Client
	logger             *zap.Logger
}

// Passage is the upstream passage payload reshaped for API consumers.
type Passage struct {
	Reference   string  `json:"reference"`
	Translation string  `json:"translation"`
	Text        string  `json:"text"`
	Verses      []Verse `json:"verses"`
}

// Verse carries one verse of fetched passage text.
type Verse struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Verse   int    `json:"verse"`
	Text    string `json:"text"`
}

// NewClient constructs a passage client with validated configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:            baseURL,
		defaultTranslation: strings.TrimSpace(cfg.DefaultTranslation),
		httpClient:         httpClient,
		logger:             logger,
	}, nil
}

type upstreamResponse struct {
	Reference   string `json:"reference"`
	Translation string `json:"translation_id"`
	Text        string `json:"text"`
	Verses      []struct {
		BookName string `json:"book_name"`
		Chapter  int    `json:"chapter"`
		Verse    int    `json:"verse"`
		Text     string `json:"text"`
	} `json:"verses"`
}

// FetchPassage retrieves the text for a verse range in the given translation.
// An empty translation falls back to the configured default.
func (c *Client) FetchPassage(ctx context.Context, ref Reference, translation string) (Passage, error) {
	book, ok := LookupBook(ref.Book)
	if !ok {
		return Passage{}, fmt.Errorf("%w: %q", ErrUnknownBook, ref.Book)
	}

	if strings.TrimSpace(translation) == "" {
		translation = c.defaultTranslation
	}

	requestURL := fmt.Sprintf("%s/%s?translation=%s",
		c.baseURL,
		url.PathEscape(passageQuery(book.Name, ref)),
		url.QueryEscape(translation))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return Passage{}, err
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return Passage{}, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		c.logger.Warn("bible api returned non-success status",
			zap.Int("status", response.StatusCode),
			zap.String("reference", ref.String()))
		return Passage{}, fmt.Errorf("%w: status %d", ErrUpstreamFailure, response.StatusCode)
	}

	var decoded upstreamResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return Passage{}, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}

	passage := Passage{
		Reference:   decoded.Reference,
		Translation: decoded.Translation,
		Text:        decoded.Text,
		Verses:      make([]Verse, 0, len(decoded.Verses)),
	}
	for _, verse := range decoded.Verses {
		passage.Verses = append(passage.Verses, Verse{
			Book:    verse.BookName,
			Chapter: verse.Chapter,
			Verse:   verse.Verse,
			Text:    verse.Text,
		})
	}
	return passage, nil
}

func passageQuery(bookName string, ref Reference) string {
	var b strings.Builder
	b.WriteString(bookName)
	b.WriteString(" ")
	fmt.Fprintf(&b, "%d", ref.StartChapter)
	if ref.StartVerse > 0 {
		fmt.Fprintf(&b, ":%d", ref.StartVerse)
	}
	switch {
	case ref.EndChapter > ref.StartChapter:
		fmt.Fprintf(&b, "-%d", ref.EndChapter)
		if ref.EndVerse > 0 {
			fmt.Fprintf(&b, ":%d", ref.EndVerse)
		}
	case ref.EndVerse > ref.StartVerse:
		fmt.Fprintf(&b, "-%d", ref.EndVerse)
	}
	return b.String()
}
