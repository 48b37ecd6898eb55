// Package messages renders the plain-text WhatsApp and SMS bodies of appointment notifications.
package messages

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultCatalog []byte

// Catalog holds parsed templates by name and channel.
type Catalog struct {
	templates map[string]map[string]*template.Template
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse builds a catalog from YAML of the form template -> channel -> text.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode message catalog: %w", err)
	}

	c := &Catalog{templates: make(map[string]map[string]*template.Template, len(raw))}
	for name, byChannel := range raw {
		c.templates[name] = make(map[string]*template.Template, len(byChannel))
		for channel, text := range byChannel {
			tmpl, err := template.New(name + "." + channel).Option("missingkey=error").Parse(text)
			if err != nil {
				return nil, fmt.Errorf("parse message %s/%s: %w", name, channel, err)
			}
			c.templates[name][channel] = tmpl
		}
	}
	return c, nil
}

// Render executes the template for channel with data.
func (c *Catalog) Render(name, channel string, data any) (string, error) {
	tmpl, ok := c.templates[name][channel]
	if !ok {
		return "", fmt.Errorf("no %s message for template %q", channel, name)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render message %s/%s: %w", name, channel, err)
	}
	return strings.TrimSpace(b.String()), nil
}
