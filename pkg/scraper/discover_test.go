package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/newsdigest/pkg/fetch"
	"github.com/umputun/newsdigest/pkg/publisher"
)

// testPub builds a publisher definition pointing at the given test server.
func testPub(t *testing.T, srvURL string, mod func(*publisher.Config)) publisher.Config {
	t.Helper()
	u, err := url.Parse(srvURL)
	require.NoError(t, err)

	p := publisher.Config{
		Name:           "testpub",
		IndexURLs:      []string{srvURL + "/index"},
		Hosts:          []string{u.Hostname()},
		LinkSelectors:  []string{"a.story"},
		TitleSelectors: []string{"h1.headline"},
		BodySelectors:  []string{"div.body p"},
		DateSelectors:  []string{".dateline"},
		Target:         10,
		Cap:            20,
		Concurrency:    4,
	}
	if mod != nil {
		mod(&p)
	}
	require.NoError(t, p.Validate())
	return p
}

func testClient() *fetch.Client {
	return fetch.New(5*time.Second, "test-agent/1.0")
}

// pad makes a page large enough to not trip the shell heuristic
func pad() string {
	return "<!-- " + strings.Repeat("padding ", 400) + " -->"
}

func TestAdapter_Index_SelectorDiscovery(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/index", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<html><body>
			<a class="story" href="/news/a">A</a>
			<a class="story" href="%s/news/b?utm_source=x#frag">B</a>
			<a class="story" href="/news/a">A again</a>
			<a class="story" href="https://elsewhere.example/news/c">off origin</a>
			<a class="story" href="javascript:void(0)">junk</a>
			%s</body></html>`, srv.URL, pad())
	})

	a := New(testPub(t, srv.URL, nil), testClient(), 8)
	urls, err := a.Index(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{srv.URL + "/news/a", srv.URL + "/news/b"}, urls)
	for _, u := range urls {
		assert.NotContains(t, u, "?")
		assert.NotContains(t, u, "#")
		assert.True(t, strings.HasPrefix(u, "http"))
	}
}

func TestAdapter_Index_StopsAtTarget(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/index", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body>")
		for i := 0; i < 9; i++ {
			fmt.Fprintf(w, `<a class="story" href="/news/%d">n</a>`, i)
		}
		fmt.Fprint(w, pad(), "</body></html>")
	})

	a := New(testPub(t, srv.URL, func(p *publisher.Config) { p.Target = 3; p.Cap = 5 }), testClient(), 8)
	urls, err := a.Index(context.Background())
	require.NoError(t, err)
	assert.Len(t, urls, 3)
}

func TestAdapter_Index_SecondarySelector(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/index", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<html><body>
			<ul><li><a href="/news/from-secondary">x</a></li></ul>
			%s</body></html>`, pad())
	})

	a := New(testPub(t, srv.URL, func(p *publisher.Config) {
		p.LinkSelectors = []string{"a.story", "ul li a"}
	}), testClient(), 8)

	urls, err := a.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/news/from-secondary"}, urls)
}

func TestAdapter_Index_JSONLDFallback(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/index", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<html><head>
			<script type="application/ld+json">
			{"@type":"ItemList","itemListElement":[
				{"@type":"ListItem","position":1,"url":"%s/news/ld-one"},
				{"@type":"ListItem","position":2,"item":{"@id":"%s/news/ld-two"}}
			]}
			</script>
			<script type="application/ld+json">{broken json</script>
			</head><body>no anchors here %s</body></html>`, srv.URL, srv.URL, pad())
	})

	a := New(testPub(t, srv.URL, nil), testClient(), 8)
	urls, err := a.Index(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{srv.URL + "/news/ld-one", srv.URL + "/news/ld-two"}, urls)
}

func TestAdapter_Index_RegexFallback(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/index", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<html><body><script>
			var links = ["%s/2026/08/22/hidden-story", "%s/2026/08/22/hidden-story"];
			</script>%s</body></html>`, srv.URL, srv.URL, pad())
	})

	a := New(testPub(t, srv.URL, func(p *publisher.Config) {
		p.LinkPattern = regexp.MustCompile(`https?://[^"'\s]+/2\d{3}/\d{2}/\d{2}/[a-z0-9-]+`)
	}), testClient(), 8)

	urls, err := a.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/2026/08/22/hidden-story"}, urls)
}

func TestAdapter_Index_ShellPrefersFeed(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// tiny page, trips the shell heuristic, still carries anchors
	mux.HandleFunc("/index", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><div id="root"></div>
			<a class="story" href="/news/from-page">x</a></body></html>`)
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel>
			<title>t</title>
			<item><title>one &lt;b&gt;bold&lt;/b&gt;</title><link>%s/news/feed-one</link></item>
			<item><title>two</title><link>%s/news/feed-two</link></item>
			</channel></rss>`, srv.URL, srv.URL)
	})

	a := New(testPub(t, srv.URL, func(p *publisher.Config) {
		p.FeedURLs = []string{srv.URL + "/feed"}
		p.Target = 2
		p.Cap = 5
	}), testClient(), 8)

	urls, err := a.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/news/feed-one", srv.URL + "/news/feed-two"}, urls,
		"feed links win over page anchors on a shell page")
}

func TestAdapter_Index_FeedRegexFallback(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/index", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "<html><body>nothing %s</body></html>", pad())
	})
	// malformed enough that strict parsing gives up
	mux.HandleFunc("/feed", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `garbage prefix
			<link>%s/news/raw-one</link>
			<link><![CDATA[%s/news/raw-two]]></link>
			no closing tags`, srv.URL, srv.URL)
	})

	a := New(testPub(t, srv.URL, func(p *publisher.Config) {
		p.FeedURLs = []string{srv.URL + "/feed"}
	}), testClient(), 8)

	urls, err := a.Index(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{srv.URL + "/news/raw-one", srv.URL + "/news/raw-two"}, urls)
}

func TestAdapter_Index_ListingFailureIsolated(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/index", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<html><body><a class="story" href="/news/ok">x</a>%s</body></html>`, pad())
	})

	a := New(testPub(t, srv.URL, func(p *publisher.Config) {
		p.IndexURLs = []string{srv.URL + "/broken", srv.URL + "/index"}
	}), testClient(), 8)

	urls, err := a.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/news/ok"}, urls)
}

func TestIsShellPage(t *testing.T) {
	big := strings.Repeat("content ", 3000)

	tests := []struct {
		name string
		body string
		want bool
	}{
		{"tiny page", "<html></html>", true},
		{"big normal page", "<html><body>" + big + "</body></html>", false},
		{"consent interstitial", "<html>" + big + " consent.google.com </html>", true},
		{"traffic block", "<html>" + big + " unusual traffic from your network</html>", true},
		{"small spa", "<html><div id=\"root\"></div>" + strings.Repeat("x", 2100) + "</html>", true},
		{"big page with spa marker", "<html><div id=\"root\"></div>" + big + "</html>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isShellPage([]byte(tt.body)))
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	pub := publisher.Config{
		Name:         "n",
		Hosts:        []string{"news.example"},
		ResolveHosts: []string{"agg.example"},
		PathPattern:  regexp.MustCompile(`^/news/`),
	}
	base, err := url.Parse("https://news.example/section/page")
	require.NoError(t, err)

	tests := []struct {
		name  string
		href  string
		want  string
		allow bool
		ok    bool
	}{
		{name: "relative resolved", href: "/news/a", want: "https://news.example/news/a", ok: true},
		{name: "query and fragment stripped", href: "https://news.example/news/b?q=1#top", want: "https://news.example/news/b", ok: true},
		{name: "wrong host", href: "https://evil.example/news/a"},
		{name: "wrong path", href: "https://news.example/sport/a"},
		{name: "root path", href: "https://news.example/"},
		{name: "bad scheme", href: "ftp://news.example/news/a"},
		{name: "javascript", href: "javascript:void(0)"},
		{name: "empty", href: "   "},
		{name: "aggregator allowed", href: "https://agg.example/wrap/1", want: "https://agg.example/wrap/1", allow: true, ok: true},
		{name: "aggregator denied", href: "https://agg.example/wrap/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeURL(pub, base, tt.href, tt.allow)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
