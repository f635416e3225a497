package cache

import (
	"github.com/saiset-co/sai-cache/types"
)

// dependencyGraph maps cache keys to the dependency tags that
// invalidate them, plus the reverse index used by tag lookups. It is
// not safe for concurrent use; the engine serializes access.
type dependencyGraph struct {
	tags       map[string][]string
	dependents map[string]map[string]struct{}
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		tags:       make(map[string][]string),
		dependents: make(map[string]map[string]struct{}),
	}
}

func (g *dependencyGraph) add(key string, tags []string) {
	if len(tags) == 0 {
		return
	}

	stored := make([]string, len(tags))
	copy(stored, tags)
	g.tags[key] = stored

	for _, tag := range tags {
		keys, exists := g.dependents[tag]
		if !exists {
			keys = make(map[string]struct{})
			g.dependents[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

func (g *dependencyGraph) remove(key string) {
	tags, exists := g.tags[key]
	if !exists {
		return
	}

	for _, tag := range tags {
		if keys, ok := g.dependents[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(g.dependents, tag)
			}
		}
	}

	delete(g.tags, key)
}

func (g *dependencyGraph) tagsOf(key string) []string {
	return g.tags[key]
}

func (g *dependencyGraph) dependentsOf(tag string) []string {
	keys := g.dependents[tag]
	if len(keys) == 0 {
		return nil
	}

	result := make([]string, 0, len(keys))
	for key := range keys {
		result = append(result, key)
	}
	return result
}

// match returns every tracked key whose tag set satisfies the pattern.
// Key-based selectors are resolved against storage, not the graph, so
// only the tag selectors apply here.
func (g *dependencyGraph) match(pattern types.Pattern) []string {
	if pattern.Substring == "" && pattern.TagFunc == nil {
		return nil
	}

	var result []string
	for key, tags := range g.tags {
		if pattern.Matches(key, tags) {
			result = append(result, key)
		}
	}
	return result
}

func (g *dependencyGraph) len() int {
	return len(g.tags)
}

func (g *dependencyGraph) clear() {
	g.tags = make(map[string][]string)
	g.dependents = make(map[string]map[string]struct{})
}
