// Package inboxguard scores phishing risk in free-form message text and
// in individual URLs. Both entry points are pure functions.
package inboxguard

import (
	"regexp"
	"strings"

	"github.com/riskguard/engine/internal/riskmodel"
)

var (
	urgencyTerms       = []string{"immediately", "final notice", "today", "urgent", "asap", "emergency", "act now", "limited time"}
	paymentTerms       = []string{"gift card", "wire", "crypto", "payment", "invoice", "western union", "moneygram", "bitcoin", "ethereum"}
	otpTerms           = []string{"code", "otp", "verification", "verify", "one-time code", "verification code"}
	impersonationTerms = []string{"irs", "usps", "fedex", "bank", "paypal", "microsoft", "medicare", "social security", "ssa", "treasury", "fbi", "police", "sheriff"}

	// scamPatternTerms supplements the four canonical categories with
	// the named scam patterns original_source recognizes. These never
	// change the canonical categories' weights; each fires independently
	// and contributes one reason.
	scamPatternTerms = []struct {
		name   string
		weight int
		reason string
		terms  []string
	}{
		{"grandparent", 25, "Grandparent/Family Emergency scam indicators detected", []string{"grandchild", "grandson", "granddaughter", "in jail", "hospital", "car accident", "bail money", "lawyer", "attorney"}},
		{"romance", 23, "Romance scam indicators detected", []string{"my love", "sweetheart", "darling", "emergency money", "travel expenses", "visa fees", "customs", "stranded"}},
		{"lottery", 28, "Lottery/Sweepstakes scam indicators detected", []string{"you've won", "prize winner", "lottery", "sweepstakes", "jackpot", "claim your prize", "processing fee", "tax payment", "upfront payment"}},
		{"investment", 25, "Investment scam indicators detected", []string{"guaranteed return", "risk-free", "once in a lifetime", "exclusive opportunity", "limited offer", "act fast", "get rich quick"}},
		{"charity", 20, "Charity scam indicators detected", []string{"disaster relief", "hurricane", "flood", "wildfire", "donate now", "help victims", "urgent donation", "crisis fund"}},
		{"contractor", 22, "Contractor scam indicators detected", []string{"damage inspection", "roof repair", "driveway", "siding", "cash discount", "today only", "leftover materials"}},
		{"medicare", 24, "Medicare scam indicators detected", []string{"medicare number", "benefits verification", "new card", "medicare id", "coverage issue"}},
	}

	urlShorteners = map[string]bool{
		"bit.ly":     true,
		"tinyurl.com": true,
		"t.co":       true,
		"goo.gl":     true,
		"ow.ly":      true,
	}

	urlPattern         = regexp.MustCompile(`https?://\S+`)
	ipLiteralPattern   = regexp.MustCompile(`\d+\.\d+\.\d+\.\d+`)
	sensitivePathWords = []string{"login", "verify", "secure", "account", "update"}
)

func containsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// extractURLs returns every http(s) substring found in text, in order.
func extractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// hostOf returns the lowercased host portion of a URL without requiring
// full RFC validation, mirroring the original's lenient urlparse use. A
// string without a "://" separator has no host and yields "".
func hostOf(raw string) string {
	s := raw
	idx := strings.Index(s, "://")
	if idx < 0 {
		return ""
	}
	s = s[idx+3:]
	if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
		s = s[:idx]
	}
	if idx := strings.IndexByte(s, '@'); idx >= 0 {
		s = s[idx+1:]
	}
	return strings.ToLower(s)
}

// urlFlags evaluates the independent URL red-flag tests. Each positive
// test is returned as one reason string.
func urlFlags(rawURL string) []string {
	host := hostOf(rawURL)
	if host == "" {
		return []string{"No domain found"}
	}

	var flags []string
	if urlShorteners[host] {
		flags = append(flags, "URL shortener used")
	}
	if ipLiteralPattern.MatchString(host) {
		flags = append(flags, "IP address used in URL")
	}
	if strings.Count(host, "-") >= 2 {
		flags = append(flags, "Multiple hyphens in domain")
	}
	if strings.Count(host, ".") >= 3 {
		flags = append(flags, "Long subdomain chain")
	}
	lowerURL := strings.ToLower(rawURL)
	if containsAny(lowerURL, sensitivePathWords) {
		flags = append(flags, "Contains sensitive action keywords")
	}
	if strings.Contains(host, "xn--") {
		flags = append(flags, "Punycode domain detected")
	}
	labels := strings.Split(host, ".")
	tld := labels[len(labels)-1]
	if len(tld) > 3 {
		flags = append(flags, "Unusual TLD length")
	}
	return flags
}

// AnalyzeText scores a free-form message body. channel is an opaque tag
// (email, sms, ...) carried through to metadata only.
func AnalyzeText(text, channel string) riskmodel.RiskResponse {
	score := 0
	var reasons []string
	lower := strings.ToLower(text)

	if containsAny(lower, urgencyTerms) {
		score += 20
		reasons = append(reasons, "Urgency language detected")
	}
	if containsAny(lower, paymentTerms) {
		score += 20
		reasons = append(reasons, "Payment request detected")
	}
	if containsAny(lower, otpTerms) {
		score += 25
		reasons = append(reasons, "Verification code request detected")
	}
	if strings.Contains(lower, "attachment") {
		score += 10
		reasons = append(reasons, "Attachment mentioned")
	}

	var entities []string
	for _, term := range impersonationTerms {
		if strings.Contains(lower, term) {
			entities = append(entities, term)
		}
	}
	if len(entities) > 0 {
		score += 20
		reasons = append(reasons, "Impersonation terms detected")
	}

	for _, pattern := range scamPatternTerms {
		if containsAny(lower, pattern.terms) {
			score += pattern.weight
			reasons = append(reasons, pattern.reason)
		}
	}

	extractedURLs := extractURLs(text)
	var aggregatedFlags []string
	for _, u := range extractedURLs {
		aggregatedFlags = append(aggregatedFlags, urlFlags(u)...)
	}
	if len(aggregatedFlags) > 0 {
		score += 15
		reasons = append(reasons, "Suspicious URLs detected")
	}

	recommendedActions := []riskmodel.RecommendedAction{
		{ID: "dont-click", Title: "Do not click", Detail: "Avoid clicking links or opening attachments in the message."},
		{ID: "official-app", Title: "Open the official app/site", Detail: "Navigate to the service using a trusted app or bookmarked site."},
		{ID: "report", Title: "Report as junk", Detail: "Use your carrier or email provider reporting tools."},
	}

	if len(reasons) == 0 {
		reasons = []string{"No obvious red flags detected."}
	}

	metadata := map[string]any{
		"extracted_urls":    orEmptyStrings(extractedURLs),
		"detected_entities": orEmptyStrings(entities),
		"red_flags":         reasons,
		"channel":           channel,
	}

	return riskmodel.BuildRiskResponse(
		score,
		reasons,
		"Avoid responding until you verify the sender through official channels.",
		recommendedActions,
		nil,
		metadata,
	)
}

// AnalyzeURL scores a single URL in isolation.
func AnalyzeURL(rawURL string) riskmodel.RiskResponse {
	flags := urlFlags(rawURL)
	score := 15 * len(flags)
	reasons := flags
	if len(reasons) == 0 {
		reasons = []string{"No obvious URL red flags detected."}
	}

	recommendedActions := []riskmodel.RecommendedAction{
		{ID: "manual", Title: "Open manually", Detail: "Type the known URL into your browser instead of clicking."},
		{ID: "verify-sender", Title: "Verify the sender", Detail: "Confirm the message with the organization using an official contact method."},
	}

	looksLikeSpoof := false
	for _, f := range flags {
		if strings.Contains(f, "Punycode") || strings.Contains(f, "hyphens") {
			looksLikeSpoof = true
			break
		}
	}

	metadata := map[string]any{
		"domain":            hostOf(rawURL),
		"looks_like_spoof":  looksLikeSpoof,
		"url_red_flags":     reasons,
	}

	return riskmodel.BuildRiskResponse(
		score,
		reasons,
		"Avoid clicking. Validate the URL through official channels.",
		recommendedActions,
		nil,
		metadata,
	)
}

// orEmptyStrings normalizes a nil slice to an empty, non-nil one so that
// metadata always serializes as `[]` rather than `null`.
func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
