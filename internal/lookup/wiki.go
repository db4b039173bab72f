package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const maxWikiResponseSize = 8 << 20

// WikiClient talks to a MediaWiki Action API endpoint.
type WikiClient struct {
	Endpoint   string
	UserAgent  string
	HTTPClient *http.Client
}

// NewWikiClient creates a client for endpoint, e.g. https://en.wikipedia.org/w/api.php.
func NewWikiClient(endpoint, userAgent string, timeout time.Duration) *WikiClient {
	return &WikiClient{
		Endpoint:  endpoint,
		UserAgent: userAgent,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type wikiAPIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *wikiAPIError) Error() string {
	return fmt.Sprintf("wiki api error %s: %s", e.Code, e.Info)
}

type wikiPage struct {
	PageID    int64             `json:"pageid"`
	Title     string            `json:"title"`
	Missing   bool              `json:"missing"`
	Invalid   bool              `json:"invalid"`
	PageProps map[string]string `json:"pageprops"`
	Extract   string            `json:"extract"`
}

type wikiQueryResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
		Pages []wikiPage `json:"pages"`
	} `json:"query"`
}

type wikiParseResponse struct {
	Parse struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"parse"`
}

// Search returns up to ten page titles matching query, best match first.
func (c *WikiClient) Search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", "10")
	params.Set("srprop", "")

	var resp wikiQueryResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, nil
}

// Summary returns the first sentences of the page titled title. The title
// is used as given and redirects are followed.
func (c *WikiClient) Summary(ctx context.Context, title string, sentences int) (string, error) {
	page, err := c.resolve(ctx, title)
	if err != nil {
		return "", err
	}

	if _, ok := page.PageProps["disambiguation"]; ok {
		options, err := c.disambiguationOptions(ctx, page.PageID)
		if err != nil {
			return "", err
		}
		return "", &DisambiguationError{Title: page.Title, Options: options}
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("exsentences", strconv.Itoa(sentences))
	params.Set("pageids", strconv.FormatInt(page.PageID, 10))

	var resp wikiQueryResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return "", err
	}
	if len(resp.Query.Pages) == 0 {
		return "", fmt.Errorf("no extract returned for page %d", page.PageID)
	}
	return strings.TrimSpace(resp.Query.Pages[0].Extract), nil
}

func (c *WikiClient) resolve(ctx context.Context, title string) (*wikiPage, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "info|pageprops")
	params.Set("ppprop", "disambiguation")
	params.Set("redirects", "1")
	params.Set("titles", title)

	var resp wikiQueryResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Query.Pages) == 0 {
		return nil, ErrPageMissing
	}

	page := resp.Query.Pages[0]
	if page.Missing || page.Invalid || page.PageID == 0 {
		return nil, ErrPageMissing
	}
	return &page, nil
}

func (c *WikiClient) disambiguationOptions(ctx context.Context, pageID int64) ([]string, error) {
	params := url.Values{}
	params.Set("action", "parse")
	params.Set("pageid", strconv.FormatInt(pageID, 10))
	params.Set("prop", "text")

	var resp wikiParseResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	return parseDisambiguationOptions(resp.Parse.Text)
}

func (c *WikiClient) get(ctx context.Context, params url.Values, out any) error {
	endpoint, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("parse wiki endpoint: %w", err)
	}
	params.Set("format", "json")
	params.Set("formatversion", "2")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("create wiki request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("call wiki api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wiki api returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWikiResponseSize))
	if err != nil {
		return fmt.Errorf("read wiki response: %w", err)
	}

	var envelope struct {
		Error *wikiAPIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode wiki response: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode wiki response: %w", err)
	}
	return nil
}

// parseDisambiguationOptions collects the first link text of every list
// item in a rendered disambiguation page, skipping table-of-contents items.
func parseDisambiguationOptions(fragment string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse disambiguation html: %w", err)
	}

	var options []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "li" && !strings.Contains(attr(n, "class"), "tocsection") {
			if a := firstElement(n, "a"); a != nil {
				if text := strings.TrimSpace(textContent(a)); text != "" {
					options = append(options, text)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return options, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func firstElement(n *html.Node, tag string) *html.Node {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && child.Data == tag {
			return child
		}
		if found := firstElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(textContent(child))
	}
	return b.String()
}

// Ensure WikiClient implements Source.
var _ Source = (*WikiClient)(nil)
