package services

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Session tokens are opaque client-held identifiers; anything outside this
// alphabet or longer than maxSessionTokenLen is replaced by a fresh one.
var sessionTokenRe = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

const maxSessionTokenLen = 128

// ValidSessionToken reports whether token may be used as a session id.
func ValidSessionToken(token string) bool {
	return token != "" && len(token) <= maxSessionTokenLen && sessionTokenRe.MatchString(token)
}

// ResolveSession returns the client's token when it is usable, otherwise a
// newly minted UUID. minted reports which case applied.
func ResolveSession(token string) (id string, minted bool) {
	token = strings.TrimSpace(token)
	if ValidSessionToken(token) {
		return token, false
	}
	return uuid.NewString(), true
}

// DefaultBotPatterns lists user-agent fragments of well-known crawlers,
// preview fetchers and scripted clients. Generic markers are anchored on the
// product-token separators ("bot/", "bot;") so device names that merely
// contain "bot", such as CUBOT phones, stay human.
var DefaultBotPatterns = []string{
	"bot/", "bot;", "+http", "crawler", "crawling", "spider", "slurp",
	"googlebot", "bingbot", "yandexbot", "baiduspider", "duckduckbot",
	"facebookexternalhit", "facebot", "twitterbot", "linkedinbot",
	"slackbot", "discordbot", "telegrambot", "whatsapp/", "pinterestbot",
	"embedly", "quora link preview", "vkshare", "w3c_validator",
	"ahrefs", "semrush", "mj12bot", "petalbot", "applebot", "bytespider",
	"headlesschrome", "phantomjs", "lighthouse", "pingdom", "uptimerobot",
	"curl/", "wget/", "python-requests", "python-urllib", "go-http-client",
	"java/", "okhttp", "axios/", "node-fetch", "libwww-perl", "httpclient",
}

// BotClassifier flags automated traffic by case-insensitive substring match
// against a pattern table. The table is data; swap it with NewBotClassifier.
type BotClassifier struct {
	patterns []string
}

// NewBotClassifier folds and stores patterns. Empty patterns are skipped.
func NewBotClassifier(patterns []string) *BotClassifier {
	fold := cases.Fold()
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, fold.String(p))
	}
	return &BotClassifier{patterns: out}
}

// IsBot reports whether ua matches any known signature. Empty or unmatched
// user agents are treated as human.
func (b *BotClassifier) IsBot(ua string) bool {
	if b == nil || ua == "" {
		return false
	}
	folded := cases.Fold().String(ua)
	for _, p := range b.patterns {
		if strings.Contains(folded, p) {
			return true
		}
	}
	return false
}
