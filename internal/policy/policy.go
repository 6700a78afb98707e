package policy

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"calltree2dot/internal/calltree"
)

// destructorMarker appears in the raw name of every destructor frame.
const destructorMarker = "~"

var (
	defaultModules = []string{
		"blink_platform.dll",
		"webcore_shared.dll",
	}

	defaultIgnores = []string{
		"_RTC_CheckEsp",
		"Node::getFlag",
		"Node::hasRareData",
		"Node::treeScope",
		"TreeScope::document",
		"WTF::RefPtr<Node>::RefPtr<Node>",
	}

	defaultIgnorePrefixes = []string{
		"DataRef<",
		"WTF::PassRefPtr<",
		"WTF::RawPtr<",
		"WTF::RefPtr<",
	}
)

// Config is the on-disk form of a Policy.
type Config struct {
	Modules        []string `yaml:"modules"`
	Ignores        []string `yaml:"ignores"`
	IgnorePrefixes []string `yaml:"ignore_prefixes"`
}

// Policy decides which frames are worth rendering and which abort a chain.
type Policy struct {
	modules        map[string]struct{}
	ignores        map[string]struct{}
	ignorePrefixes []string
}

// New builds a policy from explicit lists.
func New(modules, ignores, ignorePrefixes []string) *Policy {
	return &Policy{
		modules:        toSet(modules),
		ignores:        toSet(ignores),
		ignorePrefixes: append([]string(nil), ignorePrefixes...),
	}
}

// Default returns the built-in policy.
func Default() *Policy {
	return New(defaultModules, defaultIgnores, defaultIgnorePrefixes)
}

// Load reads a YAML policy file. Lists missing from the file keep their defaults.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	conf := Config{
		Modules:        defaultModules,
		Ignores:        defaultIgnores,
		IgnorePrefixes: defaultIgnorePrefixes,
	}
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}
	if len(conf.Modules) == 0 {
		return nil, fmt.Errorf("policy file %s: module watch list is empty", path)
	}
	return New(conf.Modules, conf.Ignores, conf.IgnorePrefixes), nil
}

// WithModules returns a copy of p watching the given modules instead.
func (p *Policy) WithModules(modules []string) *Policy {
	return &Policy{
		modules:        toSet(modules),
		ignores:        p.ignores,
		ignorePrefixes: p.ignorePrefixes,
	}
}

// Modules returns the watched module names in sorted order.
func (p *Policy) Modules() []string {
	modules := make([]string, 0, len(p.modules))
	for m := range p.modules {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	return modules
}

// IsInteresting reports whether the entry belongs to a watched module.
func (p *Policy) IsInteresting(e *calltree.Entry) bool {
	_, ok := p.modules[e.Module]
	return ok
}

// ShouldIgnore reports whether the entry must cut its chain short.
func (p *Policy) ShouldIgnore(e *calltree.Entry) bool {
	if strings.Contains(e.Name, destructorMarker) {
		return true
	}
	for _, prefix := range p.ignorePrefixes {
		if strings.HasPrefix(e.Name, prefix) {
			return true
		}
	}
	_, ok := p.ignores[calltree.DisplayName(e.Name)]
	return ok
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
