// Package wiki is a minimal MediaWiki API client. It enumerates pages,
// fetches their wikitext and converts it to plain text suitable for chunking.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ErrAuthFailed is returned when the wiki rejects the login credentials.
var ErrAuthFailed = errors.New("wiki authentication failed")

// Page is a single wiki page with its markup already cleaned.
type Page struct {
	Title   string
	Content string
	URL     string
}

type Extractor struct {
	baseURL string
	apiURL  string
	client  *http.Client
	logger  *slog.Logger
}

// NewExtractor builds a client for one wiki. The cookie jar carries the
// session obtained by Login across subsequent API calls.
func NewExtractor(baseURL string) *Extractor {
	jar, _ := cookiejar.New(nil)
	base := strings.TrimRight(baseURL, "/")
	return &Extractor{
		baseURL: base,
		apiURL:  base + "/api.php",
		client: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		logger: slog.Default(),
	}
}

// Login authenticates with the legacy action=login flow used by older
// MediaWiki installations.
func (e *Extractor) Login(ctx context.Context, username, password string) error {
	form := url.Values{
		"action":     {"login"},
		"lgname":     {username},
		"lgpassword": {password},
		"format":     {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	var loginResp struct {
		Login struct {
			Result string `json:"result"`
		} `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}

	if loginResp.Login.Result != "Success" {
		e.logger.Warn("wiki login rejected", "result", loginResp.Login.Result)
		return ErrAuthFailed
	}
	return nil
}

type pageListing struct {
	Title string `json:"title"`
}

// AllPages enumerates every non-redirect page title, following apcontinue
// pagination. A mid-pagination failure returns what was collected so far.
func (e *Extractor) AllPages(ctx context.Context) ([]pageListing, error) {
	var pages []pageListing
	apcontinue := ""

	for {
		params := url.Values{
			"action":        {"query"},
			"list":          {"allpages"},
			"aplimit":       {"500"},
			"format":        {"json"},
			"apfilterredir": {"nonredirects"},
		}
		if apcontinue != "" {
			params.Set("apcontinue", apcontinue)
		}

		var listResp struct {
			Continue struct {
				Apcontinue string `json:"apcontinue"`
			} `json:"continue"`
			Query struct {
				AllPages []pageListing `json:"allpages"`
			} `json:"query"`
		}
		if err := e.getJSON(ctx, params, &listResp); err != nil {
			e.logger.Error("failed to list wiki pages", "error", err)
			break
		}

		pages = append(pages, listResp.Query.AllPages...)

		if listResp.Continue.Apcontinue == "" {
			break
		}
		apcontinue = listResp.Continue.Apcontinue
	}
	return pages, nil
}

// PageContent fetches the current revision of a page and cleans its wikitext.
// Missing pages return nil.
func (e *Extractor) PageContent(ctx context.Context, title string) (*Page, error) {
	params := url.Values{
		"action": {"query"},
		"titles": {title},
		"prop":   {"revisions"},
		"rvprop": {"content"},
		"format": {"json"},
	}

	var contentResp struct {
		Query struct {
			Pages map[string]struct {
				Title     string `json:"title"`
				Revisions []struct {
					Content string `json:"*"`
				} `json:"revisions"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := e.getJSON(ctx, params, &contentResp); err != nil {
		return nil, err
	}

	for pageID, page := range contentResp.Query.Pages {
		if pageID == "-1" || len(page.Revisions) == 0 {
			continue
		}
		return &Page{
			Title:   page.Title,
			Content: CleanWikitext(page.Revisions[0].Content),
			URL:     fmt.Sprintf("%s/index.php?title=%s", e.baseURL, strings.ReplaceAll(title, " ", "_")),
		}, nil
	}
	return nil, nil
}

// ExtractAll fetches and cleans every page, skipping pages whose content is
// empty after cleanup. Per-page failures are logged and skipped.
func (e *Extractor) ExtractAll(ctx context.Context) ([]Page, error) {
	listings, err := e.AllPages(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.Info("wiki page listing complete", "pages", len(listings))

	var pages []Page
	for i, listing := range listings {
		page, err := e.PageContent(ctx, listing.Title)
		if err != nil {
			e.logger.Error("failed to fetch page content", "title", listing.Title, "error", err)
			continue
		}
		if page == nil || strings.TrimSpace(page.Content) == "" {
			e.logger.Warn("skipping page with empty content", "title", listing.Title)
			continue
		}
		pages = append(pages, *page)
		e.logger.Debug("page extracted", "n", i+1, "of", len(listings), "title", listing.Title)
	}

	e.logger.Info("wiki extraction complete", "listed", len(listings), "extracted", len(pages))
	return pages, nil
}

func (e *Extractor) getJSON(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", e.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("wiki API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

var (
	brTag         = regexp.MustCompile(`(?i)<br\s*/?>`)
	faqTemplate   = regexp.MustCompile(`(?i)\{\{FAQ erros`)
	internalLink  = regexp.MustCompile(`\[\[(?:[^|\]]*\|)?([^\]]+)\]\]`)
	externalLink  = regexp.MustCompile(`\[http[^\s\]]*\s*([^\]]*)\]`)
	boldItalic    = regexp.MustCompile(`'''|''`)
	header        = regexp.MustCompile(`=+\s*(.*?)\s*=+_?`)
	htmlTag       = regexp.MustCompile(`<[^>]*>`)
	categoryLink  = regexp.MustCompile(`(?i)\[\[Categoria:[^\]]*\]\]`)
	categoryLine  = regexp.MustCompile(`(?i)Categoria:[^\n\r]*`)
	runsOfSpaces  = regexp.MustCompile(`[ \t]+`)
	blankLineRuns = regexp.MustCompile(`\n\s*\n+`)
)

// CleanWikitext converts wikitext to plain text. The FAQ error template is
// unwrapped rather than dropped: its pipe-separated fields become one line
// each so the label extraction downstream still sees `name = value` pairs.
func CleanWikitext(wikitext string) string {
	text := brTag.ReplaceAllString(wikitext, "\n")

	text = faqTemplate.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "}}", "")

	text = strings.ReplaceAll(text, "|", "\n")

	text = internalLink.ReplaceAllString(text, "$1")
	text = externalLink.ReplaceAllString(text, "$1")

	text = boldItalic.ReplaceAllString(text, "")
	text = header.ReplaceAllString(text, "$1")
	text = htmlTag.ReplaceAllString(text, "")

	text = categoryLink.ReplaceAllString(text, "")
	text = categoryLine.ReplaceAllString(text, "")

	text = runsOfSpaces.ReplaceAllString(text, " ")
	text = blankLineRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
