package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/yungbote/originality-backend/internal/llm"
)

type Prompt struct {
	Name       string
	Version    int
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

func (p Prompt) Fingerprint() string {
	h := sha256.Sum256([]byte(
		strings.TrimSpace(p.Name) + "|" +
			strconv.Itoa(p.Version) + "|" +
			strings.TrimSpace(p.System) + "|" +
			strings.TrimSpace(p.User),
	))
	return hex.EncodeToString(h[:])
}

// Messages renders the prompt as a chat transcript.
func (p Prompt) Messages() []llm.Message {
	out := make([]llm.Message, 0, 2)
	if p.System != "" {
		out = append(out, llm.Message{Role: llm.RoleSystem, Content: p.System})
	}
	return append(out, llm.Message{Role: llm.RoleUser, Content: p.User})
}

// JSONSchema is the structured-output request for engines.
func (p Prompt) JSONSchema() *llm.JSONSchema {
	if p.Schema == nil {
		return nil
	}
	return &llm.JSONSchema{Name: p.SchemaName, Schema: p.Schema, Strict: true}
}
