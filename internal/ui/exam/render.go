// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exam

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jeranaias/proctor-tui/internal/assessment"
	"github.com/jeranaias/proctor-tui/internal/util"
)

// =============================================================================
// DESCRIPTION RENDERING
// =============================================================================

// DescriptionCacheSize bounds the number of rendered descriptions kept.
const DescriptionCacheSize = 64

// Renderer turns question descriptions (markdown) into terminal text.
// Output is cached per question and width; a resize rebuilds the glamour
// renderer and the cache fills again at the new width.
type Renderer struct {
	mu    sync.Mutex
	style string
	width int
	term  *glamour.TermRenderer
	cache *lru.Cache[string, string]
}

// NewRenderer creates a renderer for a dark or light terminal.
func NewRenderer(dark bool) (*Renderer, error) {
	cache, err := lru.New[string, string](DescriptionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("description cache: %w", err)
	}
	style := "light"
	if dark {
		style = "dark"
	}
	return &Renderer{style: style, cache: cache}, nil
}

// Render returns q's description wrapped to width. Rendering failures fall
// back to plain wrapped text.
func (r *Renderer) Render(q assessment.Question, width int) string {
	if strings.TrimSpace(q.Description) == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%d/%d", q.ID, width)
	if out, ok := r.cache.Get(key); ok {
		return out
	}

	out, err := r.render(q.Description, width)
	if err != nil {
		out = strings.Join(util.Wrap(q.Description, width), "\n")
	}
	r.cache.Add(key, out)
	return out
}

// render runs glamour at width. Caller holds mu.
func (r *Renderer) render(md string, width int) (string, error) {
	if r.term == nil || r.width != width {
		term, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		r.term = term
		r.width = width
	}
	out, err := r.term.Render(md)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

// Len returns the number of cached renderings.
func (r *Renderer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
