// Package exclude decides which filesystem entries are system or tooling
// artifacts that should never take part in duplicate detection.
package exclude

import "strings"

// Rules is an immutable set of name-based exclusion rules. A Rules value
// is built once and handed to the scanner; it is safe for concurrent use.
type Rules struct {
	names       map[string]struct{}
	prefixes    []string
	extensions  []string
	hiddenNames bool
}

// Option customizes a Rules value at construction time.
type Option func(*builder)

type builder struct {
	names       []string
	prefixes    []string
	extensions  []string
	hiddenNames bool
}

// WithNames adds exact-name matches (files or directories).
func WithNames(names ...string) Option {
	return func(b *builder) { b.names = append(b.names, names...) }
}

// WithPrefixes adds name-prefix matches.
func WithPrefixes(prefixes ...string) Option {
	return func(b *builder) { b.prefixes = append(b.prefixes, prefixes...) }
}

// WithExtensions adds name-suffix matches such as ".pyc" or "~".
func WithExtensions(exts ...string) Option {
	return func(b *builder) { b.extensions = append(b.extensions, exts...) }
}

// WithHiddenNames controls whether every dot-prefixed entry is excluded.
func WithHiddenNames(on bool) Option {
	return func(b *builder) { b.hiddenNames = on }
}

// New builds a Rules value from the given options.
func New(opts ...Option) Rules {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}

	names := make(map[string]struct{}, len(b.names))
	for _, n := range b.names {
		names[n] = struct{}{}
	}

	return Rules{
		names:       names,
		prefixes:    append([]string(nil), b.prefixes...),
		extensions:  append([]string(nil), b.extensions...),
		hiddenNames: b.hiddenNames,
	}
}

// DefaultRules returns the standard exclusion set: OS droppings, VCS
// metadata, caches, virtual environments, and build output.
func DefaultRules() Rules {
	return New(
		WithNames(
			// macOS
			".DS_Store", ".AppleDouble", ".LSOverride",
			".Spotlight-V100", ".Trashes", ".TemporaryItems",
			// Windows
			"Thumbs.db", "thumbs.db", "desktop.ini", "Desktop.ini",
			"$RECYCLE.BIN", "System Volume Information",
			"ehthumbs.db", "ehthumbs_vista.db",
			// Version control
			".git", ".hg", ".svn",
			// Python
			"__pycache__", ".pytest_cache", ".eggs",
			// IDEs
			".vscode", ".idea",
			// Node.js
			"node_modules", ".npm",
			// Virtual environments
			"venv", ".venv", "env", ".env",
			// Build output
			"build", "dist",
		),
		WithPrefixes("._"),
		WithExtensions(".pyc", ".pyo", ".pyd", ".egg", ".swp", ".swo", "~"),
		WithHiddenNames(true),
	)
}

// Extend returns a new Rules value combining the receiver with extra
// rules. The receiver is unchanged.
func (r Rules) Extend(opts ...Option) Rules {
	b := &builder{
		prefixes:    append([]string(nil), r.prefixes...),
		extensions:  append([]string(nil), r.extensions...),
		hiddenNames: r.hiddenNames,
	}
	for n := range r.names {
		b.names = append(b.names, n)
	}
	for _, opt := range opts {
		opt(b)
	}

	names := make(map[string]struct{}, len(b.names))
	for _, n := range b.names {
		names[n] = struct{}{}
	}
	return Rules{
		names:       names,
		prefixes:    b.prefixes,
		extensions:  b.extensions,
		hiddenNames: b.hiddenNames,
	}
}

// Match reports whether an entry with the given base name should be
// excluded. Directories matched here are pruned entirely; files are
// skipped.
func (r Rules) Match(name string) bool {
	if name == "" {
		return false
	}

	if _, ok := r.names[name]; ok {
		return true
	}

	if r.hiddenNames && strings.HasPrefix(name, ".") {
		return true
	}

	for _, p := range r.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}

	for _, ext := range r.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}

	return false
}
