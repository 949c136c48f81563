package publisher

import "regexp"

// patterns are package-level so Builtins can hand out fresh Config copies
// sharing the compiled regexps, which are safe for concurrent use.
var (
	cnnPath       = regexp.MustCompile(`^/\d{4}/\d{2}/\d{2}/`)
	cnnLinks      = regexp.MustCompile(`/2\d{3}/\d{2}/\d{2}/[a-z0-9-]+/[^"'\s<>]+`)
	nprPath       = regexp.MustCompile(`^/[a-z0-9-]+$`)
	apPath        = regexp.MustCompile(`^/article/[a-z0-9-]+`)
	apLinks       = regexp.MustCompile(`https://apnews\.com/article/[a-z0-9-]+`)
	bbcPath       = regexp.MustCompile(`^/news/articles/[a-z0-9]+$`)
	bbcLinks      = regexp.MustCompile(`/news/articles/[a-zA-Z0-9]+`)
	aljazeeraPath = regexp.MustCompile(`/20\d{2}/\d{1,2}/\d{1,2}/`)
	aljazeeraLink = regexp.MustCompile(`(?:https?://www\.aljazeera\.com)?/(?:news|features|economy|middle-east)/20\d{2}/\d{1,2}/\d{1,2}/[a-z0-9-]+`)
	reutersPath   = regexp.MustCompile(`^/(?:world|business|technology|sustainability|legal|markets)(?:/|$)`)
	nytPath       = regexp.MustCompile(`^/20\d{2}/\d{2}/\d{2}/`)
)

// Builtins returns the built-in publisher set. Callers get copies and may
// tune Target/Cap/Concurrency before handing them to the scraper.
func Builtins() []Config {
	return []Config{
		{
			Name:           "cnn",
			IndexURLs:      []string{"https://lite.cnn.com"},
			Hosts:          []string{"lite.cnn.com"},
			LinkSelectors:  []string{".card--lite a[href]", "li a[href]"},
			LinkPattern:    cnnLinks,
			PathPattern:    cnnPath,
			TitleSelectors: []string{".headline--lite"},
			BodySelectors:  []string{".article--lite p", ".article--lite"},
			DateSelectors:  []string{".timestamp--lite", ".byline--lite"},
			Target:         20,
			Cap:            30,
		},
		{
			Name:           "npr",
			IndexURLs:      []string{"https://text.npr.org"},
			Hosts:          []string{"text.npr.org"},
			LinkSelectors:  []string{"a.topic-title", "ul li a[href]"},
			PathPattern:    nprPath,
			TitleSelectors: []string{".story-head h1", "h1"},
			BodySelectors:  []string{".paragraphs-container p", "article p"},
			DateSelectors:  []string{".story-head p", ".slug-line"},
			Target:         20,
			Cap:            30,
		},
		{
			Name:          "apnews",
			IndexURLs:     []string{"https://apnews.com"},
			Hosts:         []string{"apnews.com", "www.apnews.com"},
			LinkSelectors: []string{`a.Link[href*="/article/"]`, `a[href*="/article/"]`},
			LinkPattern:   apLinks,
			PathPattern:   apPath,
			FeedURLs: []string{
				"https://news.google.com/rss/search?q=site:apnews.com&hl=en-US&gl=US&ceid=US:en",
			},
			ResolveHosts:   []string{"news.google.com"},
			TitleSelectors: []string{"h1.Page-headline", "h1"},
			BodySelectors: []string{
				".RichTextStoryBody p",
				".RichTextBody p",
				`div[data-t="article-body"] p`,
				`article[role="main"] p`,
				"article p",
			},
			DateSelectors: []string{".Page-dateModified", ".Timestamp"},
			Target:        20,
			Cap:           30,
		},
		{
			Name:           "bbc",
			IndexURLs:      []string{"https://www.bbc.com/news"},
			Hosts:          []string{"www.bbc.com", "bbc.com"},
			LinkSelectors:  []string{`a[data-testid="internal-link"]`, "a[href]"},
			LinkPattern:    bbcLinks,
			PathPattern:    bbcPath,
			TitleSelectors: []string{`h1[data-testid="headline"]`, "article h1", "h1"},
			BodySelectors: []string{
				`main div[data-component="text-block"] p`,
				`article div[data-component="text-block"] p`,
				"article p",
				"main p",
			},
			DateSelectors: []string{"time", `span[data-testid="timestamp"]`},
			Target:        20,
			Cap:           30,
		},
		{
			Name: "aljazeera",
			IndexURLs: []string{
				"https://www.aljazeera.com/news/",
				"https://www.aljazeera.com/middle-east/",
				"https://www.aljazeera.com/economy/",
			},
			Hosts:          []string{"www.aljazeera.com", "aljazeera.com"},
			LinkSelectors:  []string{"article .gc__title a", "a.u-clickable-card__link", "article a[href]"},
			LinkPattern:    aljazeeraLink,
			PathPattern:    aljazeeraPath,
			TitleSelectors: []string{"header h1", "h1"},
			BodySelectors: []string{
				"div.wysiwyg p",
				"div.article-p-wrapper p",
				"article p",
				"main p",
			},
			DateSelectors: []string{"div.date-simple span", ".article-dates"},
			Target:        60,
			Cap:           60,
		},
		{
			Name:  "reuters",
			Hosts: []string{"www.reuters.com", "reuters.com"},
			FeedURLs: []string{
				"https://news.google.com/rss/search?q=site:reuters.com/world&hl=en-US&gl=US&ceid=US:en",
				"https://news.google.com/rss/search?q=site:reuters.com/technology&hl=en-US&gl=US&ceid=US:en",
				"https://news.google.com/rss/search?q=site:reuters.com/sustainability&hl=en-US&gl=US&ceid=US:en",
			},
			ResolveHosts:   []string{"news.google.com"},
			PathPattern:    reutersPath,
			TitleSelectors: []string{`h1[data-testid="Heading"]`, "article h1", "h1"},
			BodySelectors: []string{
				`div[data-testid="article-body"] p`,
				`div[class*="article-body"] p`,
				"article p",
				"main p",
			},
			DateSelectors: []string{"time", `span[class*="date"]`},
			Target:        40,
			Cap:           40,
			Concurrency:   4,
		},
		{
			Name:  "nytimes",
			Hosts: []string{"www.nytimes.com", "nytimes.com"},
			FeedURLs: []string{
				"https://rss.nytimes.com/services/xml/rss/nyt/HomePage.xml",
				"https://rss.nytimes.com/services/xml/rss/nyt/World.xml",
			},
			PathPattern:    nytPath,
			TitleSelectors: []string{`h1[data-testid="headline"]`, "h1"},
			BodySelectors: []string{
				`section[name="articleBody"] p`,
				".StoryBodyCompanionColumn p",
				"article p",
			},
			DateSelectors: []string{"time"},
			Target:        20,
			Cap:           30,
			Concurrency:   4,
		},
	}
}
