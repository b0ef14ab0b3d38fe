package prefs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/kingfisher/internal/kv"
	"github.com/wolfeidau/kingfisher/internal/telemetry"
)

// ThemeKey is the kv key holding the theme preference.
const ThemeKey = "theme"

// Theme is the colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"

	// DefaultTheme applies when no preference has been stored.
	DefaultTheme = ThemeDark
)

// ErrInvalidTheme is returned when parsing an unknown theme name.
var ErrInvalidTheme = errors.New("invalid theme")

// ParseTheme parses a theme name, case-insensitively.
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
}

// Toggled returns the opposite theme.
func (t Theme) Toggled() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// Preferences holds the persisted user preferences.
type Preferences struct {
	mu      sync.Mutex
	kv      kv.Store
	theme   Theme
	metrics *telemetry.Metrics
}

// New creates preferences with defaults. Call Load to read persisted values.
func New(store kv.Store) *Preferences {
	return &Preferences{
		kv:      store,
		theme:   DefaultTheme,
		metrics: telemetry.GetMetrics(),
	}
}

// Load reads the persisted theme. Absent or malformed values give the default.
func (p *Preferences) Load(ctx context.Context) Theme {
	theme := p.readTheme(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.theme = theme
	return theme
}

// Theme returns the current theme.
func (p *Preferences) Theme() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.theme
}

// SetTheme sets and persists the theme. Persistence failures are logged only.
func (p *Preferences) SetTheme(ctx context.Context, theme Theme) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.theme = theme
	p.persistLocked(ctx)
}

// ToggleTheme flips the theme and returns the new value.
func (p *Preferences) ToggleTheme(ctx context.Context) Theme {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.theme = p.theme.Toggled()
	p.persistLocked(ctx)
	return p.theme
}

func (p *Preferences) readTheme(ctx context.Context) Theme {
	data, err := p.kv.Get(ctx, ThemeKey)
	if errors.Is(err, kv.ErrNotFound) {
		return DefaultTheme
	}
	if err != nil {
		p.metrics.PersistenceFailuresTotal.Add(ctx, 1)
		log.Warn().Err(err).Str("key", ThemeKey).Msg("Could not load theme")
		return DefaultTheme
	}

	theme, err := ParseTheme(string(data))
	if err != nil {
		log.Warn().Err(err).Str("key", ThemeKey).Msg("Persisted theme is malformed, using default")
		return DefaultTheme
	}

	return theme
}

func (p *Preferences) persistLocked(ctx context.Context) {
	if err := p.kv.Set(ctx, ThemeKey, []byte(p.theme)); err != nil {
		p.metrics.PersistenceFailuresTotal.Add(ctx, 1)
		log.Warn().Err(err).Str("key", ThemeKey).Msg("Could not save theme")
	}
}
