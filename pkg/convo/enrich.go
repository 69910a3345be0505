package convo

import (
	"fmt"
	"regexp"
	"strings"
)

// referenceTokens are the whole-word/phrase triggers that make a query
// eligible for reference resolution.
var referenceTokens = []string{"it", "that", "this", "they", "them", "the above", "the previous", "the data"}

var referenceTokenPattern = buildReferencePattern()

func buildReferencePattern() *regexp.Regexp {
	parts := make([]string, len(referenceTokens))
	for i, t := range referenceTokens {
		parts[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(parts, "|") + `)\b`)
}

// unresolvedMarkerPattern checks, after substitution, whether any reference
// token is still present. it/that/this/the above/the previous/the data are
// always substituted above when matched; what can remain is they/them,
// which have no substitution rule of their own, and any reference token
// carried in by the replacement text itself (e.g. "the previous query
// about ...", the fallback topic "the previous analysis", or quoted
// response text).
var unresolvedMarkerPattern = referenceTokenPattern

var wordPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

var locationTokens = []string{"new york", "nyc", "california", "chicago", "boston", "san francisco", "los angeles"}
var weatherTokens = []string{"weather", "winter", "summer", "temperature", "climate"}

// EnrichQuery is a pure function of a session's prior turns and the new
// query: it resolves pronoun/reference tokens using the most recent turn
// and optionally appends a literal context suffix. It has no suspension
// points and performs no I/O, so it is trivially unit-testable and safe to
// call under a per-session lock.
func EnrichQuery(turns []ConversationTurn, query string) (enriched string, wasEnriched bool) {
	if !referenceTokenPattern.MatchString(query) {
		return query, false
	}
	if len(turns) == 0 {
		return query, false
	}

	prev := turns[len(turns)-1]
	topic := mainTopic(prev)

	// Substitutions run as a single pass over the original query so that
	// inserted replacement text (which may itself contain "it"/"that"/
	// "this", e.g. when it quotes prev.AgentResponse) is never re-scanned.
	replacements := map[string]string{
		"the above":    fmt.Sprintf("the analysis: %s...", truncate(prev.AgentResponse, 100)),
		"the previous": fmt.Sprintf("the previous query about %s", lastNTokens(prev.UserQuery, 3)),
		"the data":     fmt.Sprintf("the data from: %s...", truncate(prev.AgentResponse, 100)),
		"it":           topic,
		"that":         topic,
		"this":         topic,
	}
	result := referenceTokenPattern.ReplaceAllStringFunc(query, func(match string) string {
		if repl, ok := replacements[strings.ToLower(match)]; ok {
			return repl
		}
		return match
	})

	wasEnriched = result != query

	if unresolvedMarkerPattern.MatchString(result) && len(wordPattern.FindAllString(result, -1)) < 5 {
		result = fmt.Sprintf("%s [Context: Previous query was '%s' with response about: %s...]",
			result, prev.UserQuery, truncate(prev.AgentResponse, 150))
		wasEnriched = true
	}

	return result, wasEnriched
}

// mainTopic extracts a short topic phrase from the previous turn, applying
// the lexical patterns in priority order.
func mainTopic(prev ConversationTurn) string {
	queryLower := strings.ToLower(prev.UserQuery)
	responseLower := strings.ToLower(prev.AgentResponse)
	combined := queryLower + " " + responseLower

	var location, weatherTerm string
	for _, loc := range locationTokens {
		if strings.Contains(combined, loc) {
			location = loc
			break
		}
	}
	for _, w := range weatherTokens {
		if strings.Contains(combined, w) {
			weatherTerm = w
			break
		}
	}
	if location != "" && weatherTerm != "" {
		return fmt.Sprintf("%s in %s", weatherTerm, location)
	}

	if strings.Contains(queryLower, "currency") || strings.Contains(queryLower, "exchange") {
		return "currency exchange analysis"
	}

	if strings.Contains(queryLower, "math") || strings.ContainsAny(queryLower, "+-*/") {
		return "mathematical calculation"
	}

	var longTokens []string
	for _, tok := range wordPattern.FindAllString(prev.AgentResponse, -1) {
		if len(tok) > 3 {
			longTokens = append(longTokens, strings.ToLower(tok))
			if len(longTokens) == 3 {
				return strings.Join(longTokens, " ")
			}
		}
	}
	if len(longTokens) > 0 {
		return strings.Join(longTokens, " ")
	}

	return "the previous analysis"
}

func lastNTokens(s string, n int) string {
	tokens := strings.Fields(s)
	if len(tokens) <= n {
		return strings.Join(tokens, " ")
	}
	return strings.Join(tokens[len(tokens)-n:], " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
