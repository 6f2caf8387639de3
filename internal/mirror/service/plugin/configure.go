package plugin

import (
	"context"
	"fmt"

	"github.com/kiosk404/mirror/internal/mirror/store"
)

// Field is one value asked from the operator during configuration.
type Field struct {
	Key      string
	Label    string
	Default  string
	Secret   bool
	Required bool
}

// Prompter asks the operator for a set of values.
type Prompter interface {
	Ask(ctx context.Context, fields []Field) (map[string]string, error)
}

// AuthRequest describes an OAuth authorization-code flow.
type AuthRequest struct {
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	RedirectURI  string
	// Extra is appended to the authorization URL query.
	Extra map[string]string
}

// OAuthHelper drives the browser side of an OAuth flow and the token
// exchange.
type OAuthHelper interface {
	// Authorize sends the operator to the authorization URL and returns the
	// code and state handed back on the redirect URI.
	Authorize(ctx context.Context, req AuthRequest) (code, state string, err error)
	// Exchange trades an authorization code for a token response.
	Exchange(ctx context.Context, req AuthRequest, code string) (map[string]any, error)
}

// ConfigureContext is handed to Configurer plugins by `mirrorctl configure`.
type ConfigureContext struct {
	desc     *Descriptor
	table    *store.Table
	prompter Prompter
	oauth    OAuthHelper
}

// NewConfigureContext builds a configuration context for a loaded plugin.
func NewConfigureContext(d *Descriptor, table *store.Table, prompter Prompter, oauth OAuthHelper) *ConfigureContext {
	return &ConfigureContext{desc: d, table: table, prompter: prompter, oauth: oauth}
}

// Name returns the plugin name.
func (c *ConfigureContext) Name() string { return c.desc.Name() }

// DB returns the plugin's private table, the same one the server uses.
func (c *ConfigureContext) DB() *store.Table { return c.table }

// OAuth returns the OAuth helper, or nil when none is available.
func (c *ConfigureContext) OAuth() OAuthHelper { return c.oauth }

// Prompt asks the operator for fields.
func (c *ConfigureContext) Prompt(ctx context.Context, fields ...Field) (map[string]string, error) {
	if c.prompter == nil {
		return nil, fmt.Errorf("plugin %q: no prompter available", c.Name())
	}
	return c.prompter.Ask(ctx, fields)
}

// PromptAndSave asks for fields, pre-filled with the values already stored,
// and stores the answers under each field's key.
func (c *ConfigureContext) PromptAndSave(ctx context.Context, fields ...Field) error {
	for i, f := range fields {
		cur, ok, err := c.table.GetString(ctx, f.Key)
		if err != nil {
			return err
		}
		if ok {
			fields[i].Default = cur
		}
	}

	answers, err := c.Prompt(ctx, fields...)
	if err != nil {
		return err
	}
	for _, f := range fields {
		v := answers[f.Key]
		if v == "" && f.Required {
			return fmt.Errorf("plugin %q: %s is required", c.Name(), f.Key)
		}
		if err := c.table.Set(ctx, f.Key, v); err != nil {
			return err
		}
	}
	return nil
}
