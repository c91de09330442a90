package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanWikitext(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"faq template unwrapped into label lines",
			"{{FAQ erros\n|erro = 528\n|solucao = reiniciar o servico}}",
			"erro = 528\n\nsolucao = reiniciar o servico",
		},
		{
			"br becomes newline",
			"first line<br/>second line",
			"first line\nsecond line",
		},
		{
			"internal link keeps text",
			"see [[TargetPage]] for details",
			"see TargetPage for details",
		},
		{
			"external link keeps label",
			"read [http://example.com the docs] now",
			"read the docs now",
		},
		{
			"bold and italic stripped",
			"'''bold''' and ''italic''",
			"bold and italic",
		},
		{
			"headers unwrapped",
			"== Section Title ==",
			"Section Title",
		},
		{
			"html tags removed",
			"<div>inner text</div>",
			"inner text",
		},
		{
			"category line removed",
			"keep this\nCategoria: Internal",
			"keep this",
		},
		{
			"whitespace collapsed",
			"a   lot\t of   space\n\n\n\nnext",
			"a lot of space\n\nnext",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanWikitext(tt.in))
		})
	}
}

func newWikiServer(t *testing.T, loginResult string, pages map[string]string) *httptest.Server {
	t.Helper()
	titles := make([]string, 0, len(pages))
	for title := range pages {
		titles = append(titles, title)
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "login", r.FormValue("action"))
			json.NewEncoder(w).Encode(map[string]any{
				"login": map[string]any{"result": loginResult},
			})
			return
		}

		switch r.URL.Query().Get("list") {
		case "allpages":
			listing := make([]map[string]string, 0, len(titles))
			for _, title := range titles {
				listing = append(listing, map[string]string{"title": title})
			}
			json.NewEncoder(w).Encode(map[string]any{
				"query": map[string]any{"allpages": listing},
			})
		default:
			title := r.URL.Query().Get("titles")
			content, ok := pages[title]
			if !ok {
				json.NewEncoder(w).Encode(map[string]any{
					"query": map[string]any{"pages": map[string]any{"-1": map[string]any{}}},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"query": map[string]any{
					"pages": map[string]any{
						"1": map[string]any{
							"title":     title,
							"revisions": []map[string]string{{"*": content}},
						},
					},
				},
			})
		}
	}))
}

func TestLoginSuccess(t *testing.T) {
	srv := newWikiServer(t, "Success", nil)
	defer srv.Close()

	e := NewExtractor(srv.URL)
	assert.NoError(t, e.Login(context.Background(), "user", "pass"))
}

func TestLoginFailure(t *testing.T) {
	srv := newWikiServer(t, "WrongPass", nil)
	defer srv.Close()

	e := NewExtractor(srv.URL)
	assert.ErrorIs(t, e.Login(context.Background(), "user", "bad"), ErrAuthFailed)
}

func TestAllPagesPagination(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("apcontinue") == "" {
			json.NewEncoder(w).Encode(map[string]any{
				"continue": map[string]any{"apcontinue": "Next"},
				"query": map[string]any{"allpages": []map[string]string{
					{"title": "First"}, {"title": "Second"},
				}},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"query": map[string]any{"allpages": []map[string]string{
				{"title": "Third"},
			}},
		})
	}))
	defer srv.Close()

	e := NewExtractor(srv.URL)
	pages, err := e.AllPages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, pages, 3)
	assert.Equal(t, "Third", pages[2].Title)
}

func TestPageContentBuildsURL(t *testing.T) {
	srv := newWikiServer(t, "Success", map[string]string{
		"Error 528 Handling": "{{FAQ erros|erro = 528|solucao = reiniciar}}",
	})
	defer srv.Close()

	e := NewExtractor(srv.URL)
	page, err := e.PageContent(context.Background(), "Error 528 Handling")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "Error 528 Handling", page.Title)
	assert.Equal(t, fmt.Sprintf("%s/index.php?title=Error_528_Handling", srv.URL), page.URL)
	assert.Contains(t, page.Content, "solucao = reiniciar")
}

func TestPageContentMissingPage(t *testing.T) {
	srv := newWikiServer(t, "Success", nil)
	defer srv.Close()

	e := NewExtractor(srv.URL)
	page, err := e.PageContent(context.Background(), "Nope")
	require.NoError(t, err)
	assert.Nil(t, page)
}

func TestExtractAllSkipsEmptyPages(t *testing.T) {
	srv := newWikiServer(t, "Success", map[string]string{
		"Good Page":  "Some real content here.",
		"Empty Page": "{{FAQ erros}}",
	})
	defer srv.Close()

	e := NewExtractor(srv.URL)
	pages, err := e.ExtractAll(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Good Page", pages[0].Title)
	assert.Equal(t, "Some real content here.", pages[0].Content)
}
