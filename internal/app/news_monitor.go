package app

import (
	"context"
	"fmt"
	"polyhawk/clients/newsapi"
	"polyhawk/clients/notifier"
	"polyhawk/clients/polymarketapi"
	"polyhawk/config"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// stopWords are question scaffolding, never useful as search keywords.
var stopWords = map[string]struct{}{
	"will": {}, "be": {}, "the": {}, "a": {}, "an": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "by": {}, "before": {},
	"after": {}, "end": {}, "year": {}, "month": {}, "day": {},
}

// decisiveTerms mark an article as reporting a settled outcome rather than
// speculation. Only decisive articles alert.
var decisiveTerms = []string{
	"announced", "confirmed", "official", "declared", "elected",
	"won", "lost", "died", "passed away", "resigned", "appointed",
	"convicted", "acquitted", "sentenced", "released", "arrested",
	"launched", "cancelled", "postponed", "approved", "rejected",
	"signed", "vetoed", "broke", "set record", "surpassed",
	"fired", "hired", "replaced", "stepped down", "retired",
}

// degenTerms flag language popular with markets-adjacent hype accounts.
var degenTerms = []string{
	"insider", "whale", "massive", "breakout", "dump", "pump",
	"liquidation", "smart money", "leaked", "confirmed", "alpha",
}

// Article scoring weights. Title matches count double because headlines
// are written to name the subject.
const (
	scoreTitleMatch       = 30
	scoreDescriptionMatch = 15
	scoreMultiMatchBonus  = 20
	scoreMax              = 100
)

// ExtractKeywords pulls search terms out of a market question: quoted
// phrases first, then proper nouns and long words, then standalone number
// sequences. Everything is lowercased and deduplicated in order of first
// appearance.
func ExtractKeywords(question string) []string {
	var keywords []string
	seen := make(map[string]struct{})
	add := func(kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return
		}
		if _, dup := seen[kw]; dup {
			return
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}

	// Quoted phrases are the strongest signal.
	rest := question
	for {
		start := strings.Index(rest, `"`)
		if start < 0 {
			break
		}
		end := strings.Index(rest[start+1:], `"`)
		if end < 0 {
			break
		}
		add(rest[start+1 : start+1+end])
		rest = rest[start+1+end+1:]
	}

	for _, token := range strings.Fields(question) {
		cleaned := stripNonAlphanumeric(token)
		if cleaned == "" {
			continue
		}
		if _, stop := stopWords[strings.ToLower(cleaned)]; stop {
			continue
		}

		// Capitalization is judged on the raw token, as written.
		capitalized := token[0] >= 'A' && token[0] <= 'Z'
		if capitalized || len(cleaned) > 8 {
			add(cleaned)
		}
	}

	// Bare digit runs catch dates, deadlines and price targets.
	for _, num := range digitRuns(question) {
		add(num)
	}

	return keywords
}

// stripNonAlphanumeric drops everything but letters and digits.
func stripNonAlphanumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// digitRuns returns every maximal run of consecutive digits in s.
func digitRuns(s string) []string {
	var runs []string
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			runs = append(runs, s[start:i])
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, s[start:])
	}
	return runs
}

// buildQuery joins the top keywords into a broad OR search.
func buildQuery(keywords []string, limit int) string {
	if limit > 0 && len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return strings.Join(keywords, " OR ")
}

// scoreArticle rates an article's relevance to a market's keywords.
// Returns the capped score and which keywords matched.
func scoreArticle(article newsapi.Article, keywords []string) (int, []string) {
	title := strings.ToLower(article.Title)
	desc := strings.ToLower(article.Description)

	score := 0
	var matched []string
	for _, kw := range keywords {
		switch {
		case strings.Contains(title, kw):
			score += scoreTitleMatch
			matched = append(matched, kw)
		case strings.Contains(desc, kw):
			score += scoreDescriptionMatch
			matched = append(matched, kw)
		}
	}

	if len(matched) >= 2 {
		score += scoreMultiMatchBonus
	}
	if len(matched) >= 3 {
		score += scoreMultiMatchBonus
	}
	if score > scoreMax {
		score = scoreMax
	}
	return score, matched
}

// isDecisive reports whether the article text reads like a settled outcome.
func isDecisive(article newsapi.Article) bool {
	text := strings.ToLower(article.Title + " " + article.Description)
	for _, term := range decisiveTerms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// degenTermsIn returns the hype terms present in the article text.
func degenTermsIn(article newsapi.Article) []string {
	text := strings.ToLower(article.Title + " " + article.Description)
	var found []string
	for _, term := range degenTerms {
		if strings.Contains(text, term) {
			found = append(found, term)
		}
	}
	return found
}

// NewsMonitor searches recent news for each monitored market and alerts on
// articles that score above the relevance floor. Each market/article pair
// alerts once; the registry holds keys for a week so a hot story does not
// re-alert every cycle.
type NewsMonitor struct {
	logger   *zap.Logger
	cfg      config.NewsConfig
	client   *newsapi.NewsApiClient
	dedup    *DedupRegistry
	notifier notifier.Notifier
}

func NewNewsMonitor(
	logger *zap.Logger,
	cfg config.NewsConfig,
	client *newsapi.NewsApiClient,
	dedup *DedupRegistry,
	notif notifier.Notifier,
) *NewsMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NewsMonitor{
		logger:   logger,
		cfg:      cfg,
		client:   client,
		dedup:    dedup,
		notifier: notif,
	}
}

type scoredArticle struct {
	article newsapi.Article
	score   int
	matched []string
}

// RunOnce evaluates news for the given markets.
func (nm *NewsMonitor) RunOnce(ctx context.Context, markets []polymarketapi.GammaMarket) error {
	if !nm.client.Enabled() {
		return nil
	}

	if nm.cfg.MarketsLimit > 0 && len(markets) > nm.cfg.MarketsLimit {
		markets = markets[:nm.cfg.MarketsLimit]
	}

	now := time.Now()
	alerts := 0
	for _, market := range markets {
		n, err := nm.processMarket(ctx, now, market)
		if err != nil {
			nm.logger.Warn("news search failed",
				zap.String("market", shortID(market.ID)),
				zap.Error(err),
			)
			continue
		}
		alerts += n
	}

	nm.logger.Info("news cycle complete",
		zap.Int("markets", len(markets)),
		zap.Int("alerts", alerts),
	)
	return nil
}

func (nm *NewsMonitor) processMarket(ctx context.Context, now time.Time, market polymarketapi.GammaMarket) (int, error) {
	keywords := ExtractKeywords(market.Question)
	if len(keywords) == 0 {
		return 0, nil
	}

	query := buildQuery(keywords, nm.cfg.QueryKeywords)
	articles, err := nm.client.Search(ctx, query, nm.cfg.PageSize)
	if err != nil {
		return 0, err
	}

	var relevant []scoredArticle
	for _, a := range articles {
		if a.URL == "" {
			continue
		}
		score, matched := scoreArticle(a, keywords)
		if score <= nm.cfg.MinScore {
			continue
		}
		// Speculation and commentary score well too; only articles
		// reporting a settled outcome are worth an alert.
		if !isDecisive(a) {
			continue
		}
		relevant = append(relevant, scoredArticle{article: a, score: score, matched: matched})
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].score > relevant[j].score
	})
	if nm.cfg.MaxPerMarket > 0 && len(relevant) > nm.cfg.MaxPerMarket {
		relevant = relevant[:nm.cfg.MaxPerMarket]
	}

	sent := 0
	for _, sa := range relevant {
		key := fmt.Sprintf("news:%s:%s", market.ID, sa.article.URL)
		if nm.dedup.SeenBefore(key, now) {
			continue
		}

		nm.logger.Info("relevant news found",
			zap.String("market", shortID(market.ID)),
			zap.String("article", sa.article.Title),
			zap.Int("score", sa.score),
			zap.Strings("matched", sa.matched),
		)

		nm.notifier.SendAlert(notifier.Alert{
			Category: notifier.CategoryNews,
			Market: notifier.MarketRef{
				ID:       market.ID,
				Question: market.Question,
				Slug:     market.Slug,
			},
			News: &notifier.NewsDetails{
				ArticleTitle: sa.article.Title,
				ArticleURL:   sa.article.URL,
				SourceName:   sa.article.Source.Name,
				PublishedAt:  sa.article.PublishedTime(now),
				Score:        sa.score,
				Keywords:     sa.matched,
				Decisive:     isDecisive(sa.article),
				Degen:        degenTermsIn(sa.article),
			},
			Timestamp: now,
		})
		sent++
	}
	return sent, nil
}
