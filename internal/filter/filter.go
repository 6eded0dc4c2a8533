package filter

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"news_curator/internal/domain"
)

// Defaults mirror the production configuration.
const (
	DefaultMaxAge           = 72 * time.Hour
	DefaultMinContentLength = 300
)

// DefaultSpamPatterns is the baseline blocklist applied to title+body.
var DefaultSpamPatterns = []string{
	`казино`,
	`casino`,
	`viagra`,
	`купить\s+диплом`,
	`заработок\s+без`,
	`click\s+here`,
	`free\s+money`,
	`win\s+now`,
}

// DefaultRelevanceKeywords is the baseline topical allow-list.
var DefaultRelevanceKeywords = []string{
	"искусственный интеллект", "ии", "ai", "нейросет",
	"машинное обучение", "автоматизация",
	"право", "юрист", "суд", "закон", "юридическ",
	"artificial intelligence", "machine learning",
	"automation", "law", "legal", "court", "lawyer",
}

// Config holds the deterministic acceptance rules.
type Config struct {
	MaxAge            time.Duration
	MinContentLength  int
	AllowedLanguages  []string
	SpamPatterns      []string
	RelevanceKeywords []string
}

// Result is the verdict for one article. Reason is empty on acceptance
// and names the first failed check otherwise.
type Result struct {
	Accepted bool
	Reason   string
}

// Filter applies the acceptance rules in a fixed order. It is pure: no
// I/O, no clock of its own, identical inputs give identical results.
type Filter struct {
	cfg       Config
	spamRe    *regexp.Regexp
	languages map[string]struct{}
	keywords  []string
}

// New compiles the rule set. Zero-valued config fields fall back to the
// defaults above.
func New(cfg Config) (*Filter, error) {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = DefaultMinContentLength
	}
	if len(cfg.AllowedLanguages) == 0 {
		cfg.AllowedLanguages = []string{"ru", "en"}
	}
	if len(cfg.SpamPatterns) == 0 {
		cfg.SpamPatterns = DefaultSpamPatterns
	}
	if len(cfg.RelevanceKeywords) == 0 {
		cfg.RelevanceKeywords = DefaultRelevanceKeywords
	}

	spamRe, err := regexp.Compile(`(?i)` + strings.Join(cfg.SpamPatterns, "|"))
	if err != nil {
		return nil, fmt.Errorf("compile spam patterns: %w", err)
	}

	languages := make(map[string]struct{}, len(cfg.AllowedLanguages))
	for _, lang := range cfg.AllowedLanguages {
		languages[strings.TrimSpace(lang)] = struct{}{}
	}

	keywords := make([]string, len(cfg.RelevanceKeywords))
	for i, kw := range cfg.RelevanceKeywords {
		keywords[i] = strings.ToLower(kw)
	}

	return &Filter{
		cfg:       cfg,
		spamRe:    spamRe,
		languages: languages,
		keywords:  keywords,
	}, nil
}

// Evaluate runs the checks in order and returns on the first failure, so
// the reported reason is always the first applicable one:
// age, length, language, spam, relevance.
func (f *Filter) Evaluate(article domain.Article, now time.Time) Result {
	if article.PublishedAt != nil {
		if age := now.Sub(*article.PublishedAt); age > f.cfg.MaxAge {
			return Result{Reason: fmt.Sprintf("article too old: %dh (max %dh)",
				int(age.Hours()), int(f.cfg.MaxAge.Hours()))}
		}
	}

	if n := len([]rune(strings.TrimSpace(article.Body))); n < f.cfg.MinContentLength {
		return Result{Reason: fmt.Sprintf("content too short: %d chars (min %d)",
			n, f.cfg.MinContentLength)}
	}

	combined := article.Title + " " + article.Body

	lang := DetectLanguage(combined)
	if _, ok := f.languages[lang]; !ok {
		if lang == "" {
			lang = "unknown"
		}
		return Result{Reason: "unsupported language: " + lang}
	}

	if f.spamRe.MatchString(combined) {
		return Result{Reason: "spam patterns detected"}
	}

	lower := strings.ToLower(combined)
	relevant := false
	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			relevant = true
			break
		}
	}
	if !relevant {
		return Result{Reason: "no relevant keywords found"}
	}

	return Result{Accepted: true}
}

// DetectLanguage classifies text by character-class ratio: more than 30%
// of the runes in one script decides the language. Returns "ru", "en" or
// "" when neither script dominates.
func DetectLanguage(text string) string {
	if text == "" {
		return ""
	}

	var cyrillic, latin, total int
	for _, r := range text {
		total++
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			latin++
		}
	}

	threshold := float64(total) * 0.3
	if float64(cyrillic) > threshold {
		return "ru"
	}
	if float64(latin) > threshold {
		return "en"
	}
	return ""
}
