// Package menu loads the dashboard sidebar and filters it by role.
package menu

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"backoffice/cmd/identity"
)

//go:embed menu.yaml
var defaultYAML []byte

// Tab is one sub-view of a section, selected with ?tab=<key>.
type Tab struct {
	Key   string `yaml:"key"`
	Title string `yaml:"title"`
}

// Item is one sidebar section.
type Item struct {
	Key   string   `yaml:"key"`
	Path  string   `yaml:"path"`
	Title string   `yaml:"title"`
	Icon  string   `yaml:"icon"`
	Roles []string `yaml:"roles"`
	Tabs  []Tab    `yaml:"tabs"`
}

// Menu is the whole sidebar in display order.
type Menu struct {
	Items []Item `yaml:"items"`
}

// ErrInvalid wraps every validation failure from Load.
var ErrInvalid = errors.New("invalid menu")

// Default returns the embedded menu. It panics if the embedded file is broken.
func Default() *Menu {
	m, err := Load(bytes.NewReader(defaultYAML))
	if err != nil {
		panic(fmt.Sprintf("menu: embedded menu.yaml: %v", err))
	}
	return m
}

// LoadFile reads a menu from path.
func LoadFile(path string) (*Menu, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open menu file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Load parses and validates a YAML menu. Unknown fields are rejected.
func Load(r io.Reader) (*Menu, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Menu
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse menu yaml: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Menu) validate() error {
	if len(m.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalid)
	}

	keys := make(map[string]bool, len(m.Items))
	paths := make(map[string]bool, len(m.Items))
	for i, it := range m.Items {
		switch {
		case it.Key == "":
			return fmt.Errorf("%w: item %d: missing key", ErrInvalid, i)
		case keys[it.Key]:
			return fmt.Errorf("%w: duplicate key %q", ErrInvalid, it.Key)
		case !strings.HasPrefix(it.Path, "/") || strings.HasPrefix(it.Path, "//"):
			return fmt.Errorf("%w: %s: path must be a local absolute path", ErrInvalid, it.Key)
		case paths[it.Path]:
			return fmt.Errorf("%w: duplicate path %q", ErrInvalid, it.Path)
		case it.Title == "":
			return fmt.Errorf("%w: %s: missing title", ErrInvalid, it.Key)
		case len(it.Roles) == 0:
			return fmt.Errorf("%w: %s: no roles", ErrInvalid, it.Key)
		case len(it.Tabs) == 0:
			return fmt.Errorf("%w: %s: no tabs", ErrInvalid, it.Key)
		}
		keys[it.Key] = true
		paths[it.Path] = true

		for _, role := range it.Roles {
			if _, ok := identity.ParseRole(role); !ok {
				return fmt.Errorf("%w: %s: unknown role %q", ErrInvalid, it.Key, role)
			}
		}

		tabs := make(map[string]bool, len(it.Tabs))
		for _, tab := range it.Tabs {
			if tab.Key == "" || tabs[tab.Key] {
				return fmt.Errorf("%w: %s: empty or duplicate tab key %q", ErrInvalid, it.Key, tab.Key)
			}
			tabs[tab.Key] = true
		}
	}
	return nil
}

// ForRole returns the sections visible to role, in display order.
// Admins see every section; blank or unknown roles see none.
func (m *Menu) ForRole(role string) []Item {
	r, ok := identity.ParseRole(role)
	if !ok {
		return nil
	}

	out := make([]Item, 0, len(m.Items))
	for _, it := range m.Items {
		if r == identity.RoleAdmin || it.allows(r) {
			out = append(out, it)
		}
	}
	return out
}

// Lookup finds the section served at path.
func (m *Menu) Lookup(path string) (Item, bool) {
	for _, it := range m.Items {
		if it.Path == path {
			return it, true
		}
	}
	return Item{}, false
}

// Visible reports whether role may open the section.
func (it Item) Visible(role string) bool {
	r, ok := identity.ParseRole(role)
	if !ok {
		return false
	}
	return r == identity.RoleAdmin || it.allows(r)
}

func (it Item) allows(r identity.Role) bool {
	return slices.ContainsFunc(it.Roles, func(s string) bool {
		got, ok := identity.ParseRole(s)
		return ok && got == r
	})
}

// Tab returns the tab named key, falling back to the first tab.
func (it Item) Tab(key string) Tab {
	for _, t := range it.Tabs {
		if t.Key == key {
			return t
		}
	}
	return it.Tabs[0]
}
