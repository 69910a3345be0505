// Package routing scores registered agents against a request and selects a
// winner, or declines when no agent clears the minimum confidence
// threshold.
package routing

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/nayanika2304/multi-agent-orchestration/pkg/a2awire"
	"github.com/nayanika2304/multi-agent-orchestration/pkg/registry"
)

// Weights collects the scoring constants from the original implementation.
// They are documented as tunables but the defaults below are canonical.
type Weights struct {
	KeywordTag     float64
	SkillMatch     float64
	DomainToken    float64
	Keyword        float64
	ExampleToken   float64
	DescToken      float64
	KeywordWeight  float64 // combined = keyword*KeywordWeight + semantic*SemanticWeight
	SemanticWeight float64
	Threshold      float64
}

// DefaultWeights reproduces the source's scoring constants.
var DefaultWeights = Weights{
	KeywordTag:     1.0,
	SkillMatch:     1.5,
	DomainToken:    0.5,
	Keyword:        0.7,
	ExampleToken:   0.3,
	DescToken:      0.4,
	KeywordWeight:  0.6,
	SemanticWeight: 0.4,
	Threshold:      0.2,
}

// AgentScore is the per-agent diagnostic record produced during selection.
type AgentScore struct {
	AgentID         string
	KeywordScore    float64
	SemanticScore   float64
	CombinedScore   float64
	MatchedTags     []string
	MatchedSkills   []string
	SemanticReasons []string
}

// Decision is the result of Select.
type Decision struct {
	AgentID    string
	Confidence float64
	Reasoning  string
	Scores     []AgentScore
}

// Router scores candidate agents using the combined keyword/semantic model
// described by the orchestrator's routing contract.
type Router struct {
	weights Weights
}

// New builds a Router with the default scoring weights.
func New() *Router {
	return &Router{weights: DefaultWeights}
}

// NewWithWeights builds a Router with custom weights (used by tests that
// probe threshold/weight sensitivity).
func NewWithWeights(w Weights) *Router {
	return &Router{weights: w}
}

// Select scores every agent in snap against request and returns the winner,
// or a decline decision (AgentID == "") if no score clears the threshold.
// Ties are broken by snap.Order (registration order), matching the
// registry's documented iteration order.
func (r *Router) Select(request string, snap registry.Snapshot) Decision {
	lowered := strings.ToLower(request)
	tokens := tokenize(lowered)

	var scores []AgentScore
	for _, name := range snap.Order {
		card := snap.Cards[name]
		caps := snap.Capabilities[name]
		kwScore, matchedTags, matchedSkills := r.keywordScore(lowered, card, snap.SkillKeywords)
		semScore, reasons := r.semanticScore(lowered, tokens, caps)
		combined := kwScore*r.weights.KeywordWeight + semScore*r.weights.SemanticWeight
		scores = append(scores, AgentScore{
			AgentID:         name,
			KeywordScore:    kwScore,
			SemanticScore:   semScore,
			CombinedScore:   combined,
			MatchedTags:     matchedTags,
			MatchedSkills:   matchedSkills,
			SemanticReasons: reasons,
		})
	}

	best := -1
	for i, s := range scores {
		if best == -1 || s.CombinedScore > scores[best].CombinedScore {
			best = i
		}
	}

	if best == -1 || scores[best].CombinedScore < r.weights.Threshold {
		decision := Decision{
			AgentID:    "",
			Confidence: 0.0,
			Reasoning:  "No agent has sufficient capability to handle this request.",
			Scores:     scores,
		}
		slog.Info("routing decision", "request", request, "winner", "", "confidence", 0.0)
		return decision
	}

	n := float64(len(snap.Order))
	confidence := scores[best].CombinedScore / n
	if confidence > 1.0 {
		confidence = 1.0
	}

	reasoning := buildReasoning(scores[best])
	decision := Decision{
		AgentID:    scores[best].AgentID,
		Confidence: confidence,
		Reasoning:  reasoning,
		Scores:     scores,
	}
	slog.Info("routing decision", "request", request, "winner", decision.AgentID, "confidence", confidence, "reasoning", reasoning)
	return decision
}

// keywordScore adds KeywordTag per matching skill tag and SkillMatch per
// skill whose SkillKeywords entry appears as a substring of the request.
func (r *Router) keywordScore(lowered string, card a2awire.AgentCard, skillKeywords map[string][]string) (float64, []string, []string) {
	var score float64
	var matchedTags []string
	var matchedSkills []string

	for _, skill := range card.Skills {
		for _, tag := range skill.Tags {
			lowerTag := strings.ToLower(tag)
			if lowerTag != "" && strings.Contains(lowered, lowerTag) {
				score += r.weights.KeywordTag
				matchedTags = append(matchedTags, lowerTag)
			}
		}
		if skillMatches(lowered, skillKeywords[skill.Name]) {
			score += r.weights.SkillMatch
			matchedSkills = append(matchedSkills, skill.Name)
		}
	}
	return score, matchedTags, matchedSkills
}

func skillMatches(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// semanticScore adds DomainToken per matching domain token, Keyword per
// matching capability keyword, ExampleToken per example sharing a
// whitespace token with the request, and DescToken per >3-char request
// token found in a skill description. Up to 3 reason strings are recorded.
func (r *Router) semanticScore(lowered string, tokens []string, caps registry.AgentCapabilitiesIndex) (float64, []string) {
	var score float64
	var reasons []string
	addReason := func(s string) {
		if len(reasons) < 3 {
			reasons = append(reasons, s)
		}
	}

	for _, domain := range sortedSetKeys(caps.Domains) {
		if domain != "" && strings.Contains(lowered, domain) {
			score += r.weights.DomainToken
			addReason(fmt.Sprintf("domain:%s", domain))
		}
	}
	for _, kw := range sortedSetKeys(caps.Keywords) {
		if kw != "" && strings.Contains(lowered, kw) {
			score += r.weights.Keyword
			addReason(fmt.Sprintf("keyword:%s", kw))
		}
	}

	wsTokens := strings.Fields(lowered)
	tokenSet := make(map[string]struct{}, len(wsTokens))
	for _, t := range wsTokens {
		tokenSet[t] = struct{}{}
	}
	for _, example := range caps.Examples {
		exampleTokens := strings.Fields(strings.ToLower(example))
		for _, et := range exampleTokens {
			if _, ok := tokenSet[et]; ok {
				score += r.weights.ExampleToken
				addReason(fmt.Sprintf("example overlap: %q", example))
				break
			}
		}
	}

	skillIDs := make([]string, 0, len(caps.SkillsByID))
	for id := range caps.SkillsByID {
		skillIDs = append(skillIDs, id)
	}
	sort.Strings(skillIDs)
	for _, id := range skillIDs {
		descLower := strings.ToLower(caps.SkillsByID[id].Description)
		for _, tok := range tokens {
			if len(tok) > 3 && strings.Contains(descLower, tok) {
				score += r.weights.DescToken
				addReason(fmt.Sprintf("description token:%s", tok))
			}
		}
	}

	return score, reasons
}

func sortedSetKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func buildReasoning(s AgentScore) string {
	if len(s.MatchedTags) == 0 && len(s.MatchedSkills) == 0 && len(s.SemanticReasons) == 0 {
		return fmt.Sprintf("Selected %s based on best overall capability match.", s.AgentID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Selected %s", s.AgentID)
	if len(s.MatchedTags) > 0 {
		fmt.Fprintf(&b, "; matched keywords: %s", strings.Join(s.MatchedTags, ", "))
	}
	if len(s.MatchedSkills) > 0 {
		fmt.Fprintf(&b, "; matched skills: %s", strings.Join(s.MatchedSkills, ", "))
	}
	if len(s.SemanticReasons) > 0 {
		fmt.Fprintf(&b, "; semantic signals: %s", strings.Join(s.SemanticReasons, ", "))
	}
	return b.String()
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
