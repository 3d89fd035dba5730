// Package search ranks posts against a free text query with weighted,
// typo tolerant matching over title, description, tags and content.
package search

import (
	"math"
	"sort"
	"strings"

	"github.com/eringen/mdblog/posts"
)

// Defaults used by NewEngine.
const (
	DefaultThreshold          = 0.4
	DefaultMinMatchCharLength = 2
	// ContentLimit caps the runes of post content scored by the default
	// content field, matching what the client index ships.
	ContentLimit = IndexContentLimit
)

// Field is one searchable part of a post.
type Field struct {
	Name   string
	Weight float64
	Values func(p posts.Post) []string
}

// DefaultFields returns the standard field table.
func DefaultFields() []Field {
	return []Field{
		{Name: "title", Weight: 2.0, Values: func(p posts.Post) []string { return []string{p.FrontMatter.Title} }},
		{Name: "description", Weight: 1.5, Values: func(p posts.Post) []string { return []string{p.FrontMatter.Description} }},
		{Name: "tags", Weight: 1.2, Values: func(p posts.Post) []string { return p.FrontMatter.Tags }},
		{Name: "content", Weight: 0.8, Values: func(p posts.Post) []string { return []string{truncate(p.Content, ContentLimit)} }},
	}
}

// Config tunes an Engine.
type Config struct {
	Fields []Field
	// Threshold is the largest accepted score: 0 demands an exact match, 1
	// accepts almost anything.
	Threshold float64
	// MinMatchCharLength is the shortest pattern matched approximately.
	MinMatchCharLength int
}

// DefaultConfig returns the configuration used by NewEngine.
func DefaultConfig() Config {
	return Config{
		Fields:             DefaultFields(),
		Threshold:          DefaultThreshold,
		MinMatchCharLength: DefaultMinMatchCharLength,
	}
}

// Result is a ranked match. Lower scores rank higher.
type Result struct {
	Post    posts.Post
	Score   float64
	Matches []string
}

// Engine searches posts. It keeps no index; every call scores the posts it
// is given.
type Engine struct {
	cfg     Config
	matcher Matcher
	weights []float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithMatcher replaces the approximate matcher.
func WithMatcher(m Matcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// NewEngine returns an Engine using the default field table.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	if len(e.cfg.Fields) == 0 {
		e.cfg.Fields = DefaultFields()
	}
	if e.matcher == nil {
		e.matcher = NewApproxMatcher(e.cfg.Threshold, e.cfg.MinMatchCharLength)
	}
	var total float64
	for _, f := range e.cfg.Fields {
		total += f.Weight
	}
	e.weights = make([]float64, len(e.cfg.Fields))
	for i, f := range e.cfg.Fields {
		if total > 0 {
			e.weights[i] = f.Weight / total
		} else {
			e.weights[i] = 1
		}
	}
	return e
}

// Search scores every post against query and returns the matching ones,
// best first. Posts with equal scores keep their input order. Invalid UTF-8
// in the query is dropped, and a blank query returns nil without scoring
// anything.
func (e *Engine) Search(ps []posts.Post, query string) []Result {
	pattern := strings.ToLower(strings.TrimSpace(strings.ToValidUTF8(query, "")))
	if pattern == "" {
		return nil
	}
	var results []Result
	for _, p := range ps {
		if r, ok := e.score(p, pattern); ok {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})
	return results
}

func (e *Engine) score(p posts.Post, pattern string) (Result, bool) {
	total := 1.0
	var matched []string
	for i, f := range e.cfg.Fields {
		hit := false
		for _, v := range f.Values(p) {
			if strings.TrimSpace(v) == "" {
				continue
			}
			s, ok := e.matcher(pattern, strings.ToLower(v))
			if !ok {
				continue
			}
			if s == 0 {
				s = epsilon
			}
			total *= math.Pow(s, e.weights[i]*fieldNorm(v))
			hit = true
		}
		if hit {
			matched = append(matched, f.Name)
		}
	}
	if len(matched) == 0 {
		return Result{}, false
	}
	return Result{Post: p, Score: total, Matches: matched}, true
}
