// Package i18n loads locale catalogs and hands out the key lookup used to
// resolve %i18n("key")% tokens in popup templates.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is used when no catalog matches a requested locale.
const BaseLocale = "en"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

// Func maps a message key to localised text.
type Func func(key string) string

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog holds every loaded locale.
type Catalog struct {
	builder *catalog.Builder
	tags    []language.Tag
	keys    map[language.Tag]map[string]struct{}
	matcher language.Matcher
}

// LoadEmbedded loads the catalogs shipped with the binary.
func LoadEmbedded() (*Catalog, error) {
	return LoadFS(embeddedLocales, "locales/*.yaml")
}

// LoadFS loads every catalog file matching pattern in fsys.
func LoadFS(fsys fs.FS, pattern string) (*Catalog, error) {
	paths, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files match %q", pattern)
	}
	sort.Strings(paths)

	c := &Catalog{
		builder: catalog.NewBuilder(),
		keys:    map[language.Tag]map[string]struct{}{},
	}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := c.add(file); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", p, err)
		}
	}

	base := language.Make(BaseLocale)
	if _, ok := c.keys[base]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	// The matcher falls back to its first tag, so keep the base locale there.
	sort.SliceStable(c.tags, func(i, j int) bool {
		return c.tags[i] == base && c.tags[j] != base
	})
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

func (c *Catalog) add(file catalogFile) error {
	locale := strings.TrimSpace(file.Locale)
	if locale == "" {
		return fmt.Errorf("locale is required")
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("parse locale %q: %w", locale, err)
	}
	if _, exists := c.keys[tag]; exists {
		return fmt.Errorf("locale %q defined twice", locale)
	}

	keys := make(map[string]struct{}, len(file.Messages))
	for key, msg := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("message key cannot be blank")
		}
		// Printers treat catalog messages as format strings.
		if err := c.builder.SetString(tag, key, strings.ReplaceAll(msg, "%", "%%")); err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
		keys[key] = struct{}{}
	}
	c.keys[tag] = keys
	c.tags = append(c.tags, tag)
	return nil
}

// Locales returns the loaded locale tags.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.tags))
	for _, tag := range c.tags {
		out = append(out, tag.String())
	}
	sort.Strings(out)
	return out
}

// Match returns the loaded locale that best serves the requested one.
func (c *Catalog) Match(locale string) language.Tag {
	_, idx, _ := c.matcher.Match(language.Make(locale))
	return c.tags[idx]
}

// Translator returns the lookup for locale. Keys missing from the matched
// catalog fall back to the base locale, then to the key itself.
func (c *Catalog) Translator(locale string) Func {
	tag := c.Match(locale)
	base := language.Make(BaseLocale)
	printer := message.NewPrinter(tag, message.Catalog(c.builder))
	basePrinter := message.NewPrinter(base, message.Catalog(c.builder))

	return func(key string) string {
		if _, ok := c.keys[tag][key]; ok {
			return printer.Sprintf(key)
		}
		if _, ok := c.keys[base][key]; ok {
			return basePrinter.Sprintf(key)
		}
		return key
	}
}
