package tasks

import (
	"context"
	"strings"

	"github.com/conveyor-engine/conveyor/internal/secrets"
	"github.com/conveyor-engine/conveyor/pkg/schema"
)

// DefaultCredsPrefix is the target-name prefix that marks a vault entry as
// belonging to the automation, mirroring the credential-manager convention.
const DefaultCredsPrefix = "AUTOMATION/"

// CredsGroup returns the credential enumeration group backed by the vault.
func CredsGroup(vault secrets.Vault, prefix string) *Group {
	if prefix == "" {
		prefix = DefaultCredsPrefix
	}
	c := &credsList{vault: vault, prefix: prefix}
	return NewGroup("creds", c)
}

type credsList struct {
	vault  secrets.Vault
	prefix string
}

func (c *credsList) Name() string { return "list" }
func (c *credsList) Describe() string {
	return "List vault credentials under the automation prefix"
}

// Run enumerates credentials whose target name starts with the prefix.
// Passwords are omitted unless include_passwords is set; the masked
// context snapshot is not a substitute for keeping them out entirely.
func (c *credsList) Run(ctx context.Context, in Input) (any, error) {
	if c.vault == nil {
		return nil, schema.NewError(schema.ErrCodeVault, "no vault configured")
	}

	prefix, ok := in.GetString("prefix")
	if !ok || prefix == "" {
		prefix = c.prefix
	}
	includePasswords := in.GetBool("include_passwords", false)

	targets, err := c.vault.List(ctx)
	if err != nil {
		return nil, err
	}

	creds := make([]any, 0, len(targets))
	for _, target := range targets {
		if !strings.HasPrefix(target, prefix) {
			continue
		}
		cred, err := c.vault.ResolveCredential(ctx, target)
		if err != nil {
			return nil, err
		}

		entry := map[string]any{
			"target":   target,
			"username": cred.Username,
		}
		if includePasswords {
			entry["password"] = cred.Password
		}
		creds = append(creds, entry)
	}

	return map[string]any{
		"credentials":       creds,
		"credentials_total": len(creds),
	}, nil
}
