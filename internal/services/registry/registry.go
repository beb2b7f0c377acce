package registry

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/arca/internal/common"
)

// ArchivePattern carries per-domain knowledge about a known archive:
// selectors that tend to work, whether JavaScript is required, and
// steps that must run before any data appears. MetadataMappings name
// per-field selector hints (field name to candidate selectors) tried
// before the generic field probes. Patterns bias analysis; they never
// replace it.
type ArchivePattern struct {
	Name               string              `yaml:"name"`
	Domain             string              `yaml:"domain"`
	Description        string              `yaml:"description,omitempty"`
	JavaScriptRequired bool                `yaml:"javascript_required"`
	WaitSelectors      []string            `yaml:"wait_selectors,omitempty"`
	ContainerHints     []string            `yaml:"container_hints,omitempty"`
	ItemHints          []string            `yaml:"item_hints,omitempty"`
	NavigationHints    []string            `yaml:"navigation_hints,omitempty"`
	MetadataMappings   map[string][]string `yaml:"metadata_mappings,omitempty"`
	PreNavigation      []PreNavigationStep `yaml:"pre_navigation,omitempty"`
}

// PreNavigationStep is one action to perform before analysis: select a
// dropdown value, click a control, wait for a selector, or jump to the
// page the data actually lives on.
type PreNavigationStep struct {
	Action    string        `yaml:"action"` // "select", "click", "wait", "navigate"
	Selector  string        `yaml:"selector,omitempty"`
	Value     string        `yaml:"value,omitempty"`
	Target    string        `yaml:"target,omitempty"` // navigate: absolute or site-relative URL
	WaitAfter time.Duration `yaml:"wait_after,omitempty"`
}

// Registry resolves archive patterns by URL. Built-in patterns cover
// the archives the project was built against; user patterns loaded
// from YAML files override built-ins for the same domain.
type Registry struct {
	patterns map[string]*ArchivePattern
	logger   arbor.ILogger
}

// New creates a registry pre-loaded with the built-in patterns.
func New() *Registry {
	r := &Registry{
		patterns: make(map[string]*ArchivePattern),
		logger:   common.GetLogger(),
	}
	for _, p := range builtinPatterns {
		r.patterns[p.Domain] = p
	}
	return r
}

// LoadDir loads every .yaml/.yml pattern file in dir. A missing dir is
// fine; bad files fail loudly so a typo does not silently drop a
// pattern.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Debug().Str("dir", dir).Msg("No pattern directory, using built-ins only")
			return nil
		}
		return fmt.Errorf("failed to read pattern directory %s: %w", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read pattern file %s: %w", path, err)
		}

		var pattern ArchivePattern
		if err := yaml.Unmarshal(data, &pattern); err != nil {
			return fmt.Errorf("failed to parse pattern file %s: %w", path, err)
		}
		if pattern.Domain == "" {
			return fmt.Errorf("pattern file %s has no domain", path)
		}

		r.patterns[pattern.Domain] = &pattern
		loaded++
	}

	if loaded > 0 {
		r.logger.Info().Int("patterns", loaded).Str("dir", dir).Msg("Archive patterns loaded")
	}
	return nil
}

// Lookup returns the pattern whose domain matches the URL's host
// (exact or parent-domain match), or nil when the archive is unknown.
func (r *Registry) Lookup(rawURL string) *ArchivePattern {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	host := strings.ToLower(u.Hostname())

	if p, ok := r.patterns[host]; ok {
		return p
	}
	for domain, p := range r.patterns {
		if strings.HasSuffix(host, "."+domain) {
			return p
		}
	}
	return nil
}

// Domains returns the registered domains, for diagnostics.
func (r *Registry) Domains() []string {
	domains := make([]string, 0, len(r.patterns))
	for d := range r.patterns {
		domains = append(domains, d)
	}
	return domains
}
