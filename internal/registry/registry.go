package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/golovatskygroup/hookbase-mcp/pkg/mcp"
)

// Category represents a group of related tools
type Category struct {
	Name        string
	Description string
	Keywords    []string
	Tools       []string
}

// Registry is the fixed table of tools advertised to the host.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]mcp.Tool
	order      []string
	categories []Category
	category   map[string]string // tool -> category name

	schemas sync.Map // tool name -> *jsonschema.Schema
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		tools:    make(map[string]mcp.Tool),
		category: make(map[string]string),
	}
}

// Register adds tools under a category, creating the category on first use.
// Registering a name twice replaces the earlier definition.
func (r *Registry) Register(cat Category, tools ...mcp.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i := range r.categories {
		if r.categories[i].Name == cat.Name {
			idx = i
			break
		}
	}
	if idx < 0 {
		cat.Tools = nil
		r.categories = append(r.categories, cat)
		idx = len(r.categories) - 1
	}

	for _, t := range tools {
		if _, exists := r.tools[t.Name]; !exists {
			r.order = append(r.order, t.Name)
			r.categories[idx].Tools = append(r.categories[idx].Tools, t.Name)
		}
		r.tools[t.Name] = t
		r.category[t.Name] = cat.Name
		r.schemas.Delete(t.Name)
	}
}

// Get returns a tool by name
func (r *Registry) Get(name string) (mcp.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns every tool in registration order.
func (r *Registry) List() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// ListCategories returns all categories in registration order.
func (r *Registry) ListCategories() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// CategoryOf returns the category a tool was registered under.
func (r *Registry) CategoryOf(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.category[name]; ok {
		return c
	}
	return "other"
}

// ToolCount returns total number of available tools
func (r *Registry) ToolCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Search ranks tools by keyword match on name, description and category keywords.
func (r *Registry) Search(query string, category string, limit int) []mcp.ToolSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	query = strings.ToLower(strings.TrimSpace(query))

	type scored struct {
		summary mcp.ToolSummary
		score   int
	}
	var hits []scored

	for _, name := range r.order {
		cat := r.category[name]
		if category != "" && !strings.EqualFold(cat, category) {
			continue
		}
		tool := r.tools[name]
		summary := mcp.ToolSummary{
			Name:        name,
			Description: truncateDescription(tool.Description, 100),
			Category:    cat,
		}
		if query == "" {
			hits = append(hits, scored{summary, 1})
			continue
		}

		score := 0
		nameLower := strings.ToLower(name)
		if strings.Contains(nameLower, query) {
			score += 100
		}
		if fuzzy.Match(query, nameLower) {
			score += 50
		}
		if strings.Contains(strings.ToLower(tool.Description), query) {
			score += 30
		}
		for _, c := range r.categories {
			if c.Name != cat {
				continue
			}
			for _, kw := range c.Keywords {
				if strings.Contains(query, strings.ToLower(kw)) {
					score += 20
				}
			}
		}
		if score > 0 {
			hits = append(hits, scored{summary, score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]mcp.ToolSummary, 0, limit)
	for i := 0; i < len(hits) && i < limit; i++ {
		out = append(out, hits[i].summary)
	}
	return out
}

// Suggest returns up to limit registered names close to an unknown name.
func (r *Registry) Suggest(name string, limit int) []string {
	r.mu.RLock()
	names := append([]string(nil), r.order...)
	r.mu.RUnlock()

	name = strings.TrimSpace(name)
	if name == "" || limit <= 0 {
		return nil
	}

	ranks := fuzzy.RankFindNormalizedFold(name, names)
	if len(ranks) == 0 {
		// Not a subsequence of anything: fall back to edit distance.
		maxDist := len(name)/3 + 1
		for _, n := range names {
			if d := fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(n)); d <= maxDist {
				ranks = append(ranks, fuzzy.Rank{Source: name, Target: n, Distance: d})
			}
		}
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].Target < ranks[j].Target
	})

	out := make([]string, 0, limit)
	for i := 0; i < len(ranks) && i < limit; i++ {
		out = append(out, ranks[i].Target)
	}
	return out
}

func truncateDescription(desc string, maxLen int) string {
	if len(desc) <= maxLen {
		return desc
	}
	return desc[:maxLen-3] + "..."
}
