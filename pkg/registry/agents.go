package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nayanika2304/multi-agent-orchestration/pkg/a2awire"
)

// NotFoundError reports that an identifier did not resolve to any
// registered agent.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("NOT_FOUND: no agent matches %q", e.Identifier)
}

// SkillInfo is the skills_by_id entry of AgentCapabilities.
type SkillInfo struct {
	Name        string
	Description string
	Tags        []string
}

// AgentCapabilitiesIndex is the derived per-agent capability index,
// recomputed from scratch whenever the registry mutates.
type AgentCapabilitiesIndex struct {
	Domains    map[string]struct{}
	Keywords   map[string]struct{}
	Examples   []string
	SkillsByID map[string]SkillInfo
}

// AgentSummary is the list()-shape summary record for one agent.
type AgentSummary struct {
	ID           string
	Name         string
	Description  string
	URL          string
	Skills       []a2awire.Skill
	Keywords     []string
	Capabilities a2awire.AgentCapabilities
}

// AgentRegistry is the in-memory agent card store (C2). Card storage itself
// is delegated to BaseRegistry, keyed by agent name; AgentRegistry layers
// the derived SkillKeywords and AgentCapabilities indices on top, rebuilt
// from scratch on every mutation per the registry's "rare mutations, many
// reads" policy.
type AgentRegistry struct {
	base *BaseRegistry[a2awire.AgentCard]

	// mu serializes the compound "mutate card store, then rebuild indices"
	// transaction. BaseRegistry's own lock only makes a single Register/
	// Remove call atomic; without this outer lock two concurrent writers
	// could interleave their rebuilds and leave a stale index in place.
	mu sync.Mutex

	idxMu         sync.RWMutex
	skillKeywords map[string][]string
	capabilities  map[string]AgentCapabilitiesIndex
}

// NewAgentRegistry constructs an empty registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{
		base:          NewBaseRegistry[a2awire.AgentCard](),
		skillKeywords: make(map[string][]string),
		capabilities:  make(map[string]AgentCapabilitiesIndex),
	}
}

// Add inserts or replaces card under key card.Name, then recomputes both
// derived indices over the full agent set.
func (r *AgentRegistry) Add(card a2awire.AgentCard) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_ = r.base.Register(card.Name, card)
	r.rebuildIndices()
}

// Remove resolves identifier in priority order — exact name, exact URL,
// case-insensitive name, URL substring — and deletes the matching card.
func (r *AgentRegistry) Remove(identifier string) (a2awire.AgentCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.resolveName(identifier)
	if !ok {
		return a2awire.AgentCard{}, &NotFoundError{Identifier: identifier}
	}
	card, _ := r.base.Get(name)
	r.base.Remove(name)
	r.rebuildIndices()
	return card, nil
}

func (r *AgentRegistry) resolveName(identifier string) (string, bool) {
	if _, ok := r.base.Get(identifier); ok {
		return identifier, true
	}
	names := r.base.Names()
	for _, name := range names {
		card, _ := r.base.Get(name)
		if card.URL == identifier {
			return name, true
		}
	}
	lowered := strings.ToLower(identifier)
	for _, name := range names {
		if strings.ToLower(name) == lowered {
			return name, true
		}
	}
	for _, name := range names {
		card, _ := r.base.Get(name)
		if strings.Contains(card.URL, identifier) {
			return name, true
		}
	}
	return "", false
}

// LookupByID returns the card registered under name (the registry key doubles
// as the agent's id).
func (r *AgentRegistry) LookupByID(id string) (a2awire.AgentCard, error) {
	card, ok := r.base.Get(id)
	if !ok {
		return a2awire.AgentCard{}, &NotFoundError{Identifier: id}
	}
	return card, nil
}

// List returns summary records for every registered agent, in registration
// order.
func (r *AgentRegistry) List() []AgentSummary {
	names := r.base.Names()

	r.idxMu.RLock()
	defer r.idxMu.RUnlock()

	out := make([]AgentSummary, 0, len(names))
	for _, name := range names {
		card, _ := r.base.Get(name)
		out = append(out, AgentSummary{
			ID:           name,
			Name:         name,
			Description:  card.Description,
			URL:          card.URL,
			Skills:       card.Skills,
			Keywords:     sortedKeys(r.capabilities[name].Keywords),
			Capabilities: card.Capabilities,
		})
	}
	return out
}

// Count returns the number of registered agents.
func (r *AgentRegistry) Count() int {
	return r.base.Count()
}

// Snapshot is an immutable, point-in-time view of the registry used by the
// routing engine so that a query never observes a partially rebuilt index.
type Snapshot struct {
	Order         []string
	Cards         map[string]a2awire.AgentCard
	SkillKeywords map[string][]string
	Capabilities  map[string]AgentCapabilitiesIndex
}

// Snapshot captures the current registry state.
func (r *AgentRegistry) Snapshot() Snapshot {
	order := r.base.Names()

	cards := make(map[string]a2awire.AgentCard, len(order))
	for _, name := range order {
		card, _ := r.base.Get(name)
		cards[name] = card
	}

	r.idxMu.RLock()
	defer r.idxMu.RUnlock()

	sk := make(map[string][]string, len(r.skillKeywords))
	for k, v := range r.skillKeywords {
		sk[k] = v
	}
	caps := make(map[string]AgentCapabilitiesIndex, len(r.capabilities))
	for k, v := range r.capabilities {
		caps[k] = v
	}
	return Snapshot{Order: order, Cards: cards, SkillKeywords: sk, Capabilities: caps}
}

// rebuildIndices recomputes SkillKeywords and AgentCapabilities from scratch
// over the current agent set. Must be called with mu held for writing.
func (r *AgentRegistry) rebuildIndices() {
	order := r.base.Names()

	skillKeywords := make(map[string][]string)
	capabilities := make(map[string]AgentCapabilitiesIndex)

	for _, name := range order {
		card, _ := r.base.Get(name)

		domains := make(map[string]struct{})
		keywords := make(map[string]struct{})
		var examples []string
		skillsByID := make(map[string]SkillInfo)

		for _, skill := range card.Skills {
			for _, tok := range tokenize(skill.Name) {
				if len(tok) >= 4 {
					domains[tok] = struct{}{}
				}
			}
			for _, tok := range tokenize(skill.Description) {
				if len(tok) >= 4 {
					domains[tok] = struct{}{}
				}
			}
			for _, tag := range skill.Tags {
				keywords[strings.ToLower(tag)] = struct{}{}
			}
			examples = append(examples, skill.Examples...)
			skillsByID[skill.ID] = SkillInfo{Name: skill.Name, Description: skill.Description, Tags: skill.Tags}

			skillKeywords[skill.Name] = buildSkillKeywords(skill)
		}

		capabilities[name] = AgentCapabilitiesIndex{
			Domains:    domains,
			Keywords:   keywords,
			Examples:   examples,
			SkillsByID: skillsByID,
		}
	}

	r.idxMu.Lock()
	r.skillKeywords = skillKeywords
	r.capabilities = capabilities
	r.idxMu.Unlock()
}

// buildSkillKeywords computes SkillKeywords[skill.Name]: the union of the
// skill's tags, the skill name tokenized by underscore, and the first three
// tokens (>=3 chars) of its description.
func buildSkillKeywords(skill a2awire.Skill) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, tag := range skill.Tags {
		add(tag)
	}
	for _, part := range strings.Split(skill.Name, "_") {
		add(part)
	}
	count := 0
	for _, tok := range tokenize(skill.Description) {
		if len(tok) < 3 {
			continue
		}
		add(tok)
		count++
		if count == 3 {
			break
		}
	}
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
