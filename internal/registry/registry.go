package registry

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

const DefaultPath = "법령검색목록.csv"

// DefaultAliases maps abbreviations common in model output to the canonical
// registry names. They are consulted only when the text itself is not found.
var DefaultAliases = map[string]string{
	"외부감사법":      "주식회사 등의 외부감사에 관한 법률",
	"외부감사법 시행령":  "주식회사 등의 외부감사에 관한 법률 시행령",
	"외부감사법 시행규칙": "주식회사 등의 외부감사에 관한 법률 시행규칙",
}

type Entry struct {
	Name string
	MST  string
}

// Registry resolves free-text law citations against a law name -> MST table.
// The table is read lazily on first use and shared by concurrent readers.
type Registry struct {
	path    string
	aliases map[string]string
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]string
	loaded  bool
	group   singleflight.Group
}

type Option func(*Registry)

func WithAliases(aliases map[string]string) Option {
	return func(r *Registry) {
		for k, v := range aliases {
			r.aliases[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func New(path string, opts ...Option) *Registry {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	r := &Registry{
		path:    path,
		aliases: make(map[string]string, len(DefaultAliases)),
		logger:  slog.Default(),
	}
	for k, v := range DefaultAliases {
		r.aliases[k] = v
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromEntries builds an already-loaded registry, mainly for tests and
// embedding callers that source the table elsewhere.
func NewFromEntries(entries map[string]string, opts ...Option) *Registry {
	r := New("", opts...)
	table := make(map[string]string, len(entries))
	for name, mst := range entries {
		table[name] = mst
	}
	r.entries = table
	r.loaded = true
	return r
}

func (r *Registry) Path() string {
	return r.path
}

// Reload reads the source file now, replacing the current table.
func (r *Registry) Reload(ctx context.Context) (int, error) {
	v, err, _ := r.group.Do("load", func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := r.read()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.entries = table
		r.loaded = true
		r.mu.Unlock()
		return len(table), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Invalidate drops the cached table; the next lookup reads the file again.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.entries = nil
	r.loaded = false
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	return len(r.table())
}

func (r *Registry) Lookup(name string) (Entry, bool) {
	name = strings.TrimSpace(name)
	mst, ok := r.table()[name]
	if !ok {
		return Entry{}, false
	}
	return Entry{Name: name, MST: mst}, true
}

func (r *Registry) Alias(name string) (string, bool) {
	canonical, ok := r.aliases[strings.TrimSpace(name)]
	return canonical, ok
}

// Resolve returns a law.go.kr URL for the citation. Article citations always
// produce a deep link, falling back to the raw law name when the registry has
// no match. Whole-statute citations resolve only when the registry knows them.
func (r *Registry) Resolve(citation string) (string, bool) {
	s := strings.TrimSpace(citation)
	if s == "" {
		return "", false
	}
	table := r.table()

	if law, article, ok := ParseArticle(s); ok {
		for _, candidate := range r.candidates(s) {
			name := StripArticle(candidate)
			if name == "" {
				name = candidate
			}
			if _, found := table[name]; found {
				return ArticleURL(name, article), true
			}
		}
		return ArticleURL(law, article), true
	}

	for _, candidate := range r.candidates(s) {
		if mst, found := table[candidate]; found {
			return StatuteURL(mst), true
		}
	}
	return "", false
}

// IsValid reports whether the citation names a statute known to the
// registry, directly or through an alias.
func (r *Registry) IsValid(citation string) bool {
	s := strings.TrimSpace(citation)
	if s == "" {
		return false
	}
	table := r.table()

	base := StripArticle(s)
	if base == "" {
		base = s
	}
	if _, ok := table[base]; ok {
		return true
	}
	if canonical, ok := r.aliases[base]; ok {
		_, found := table[canonical]
		return found
	}
	return false
}

func (r *Registry) candidates(s string) []string {
	out := []string{s}
	stripped := StripArticle(s)
	if stripped != "" && stripped != s {
		out = append(out, stripped)
	}
	if canonical, ok := r.aliases[s]; ok {
		out = append(out, canonical)
	}
	if stripped != "" && stripped != s {
		if canonical, ok := r.aliases[stripped]; ok {
			out = append(out, canonical)
		}
	}
	return out
}

func (r *Registry) table() map[string]string {
	r.mu.RLock()
	if r.loaded {
		entries := r.entries
		r.mu.RUnlock()
		return entries
	}
	r.mu.RUnlock()

	if _, err := r.Reload(context.Background()); err != nil {
		r.logger.Error("registry: load failed, continuing with empty table", "path", r.path, "error", err)
		r.mu.Lock()
		if !r.loaded {
			r.entries = map[string]string{}
			r.loaded = true
		}
		r.mu.Unlock()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries
}

func (r *Registry) read() (map[string]string, error) {
	rows, err := readRows(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("registry: source file not found, using empty table", "path", r.path)
			return map[string]string{}, nil
		}
		return nil, err
	}
	table := parseRows(rows)
	r.logger.Info("registry: loaded", "path", r.path, "entries", len(table))
	return table, nil
}
