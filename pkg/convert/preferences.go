package convert

import (
	"context"

	"github.com/charithe/calcengine/pkg/storage"
	"github.com/pkg/errors"
)

const ThemeKey = "selectedTheme"

// Themes are the colour schemes the interface can be switched between.
var Themes = []string{"value-1", "value-2", "value-3", "value-4"}

var ErrUnknownTheme = errors.New("unknown theme")

// Selection is the pair of units chosen for a category.
type Selection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

var defaultSelections = map[Category]Selection{
	Currency:    {From: "USD", To: "PLN"},
	Length:      {From: "cm", To: "m"},
	Mass:        {From: "kg", To: "g"},
	Temperature: {From: "C", To: "F"},
	Volume:      {From: "l", To: "ml"},
}

var keySuffixes = map[Category]string{
	Currency:    "Currency",
	Length:      "Length",
	Mass:        "Mass",
	Temperature: "Temp",
	Volume:      "Volume",
}

// Preferences persists converter selections and the theme.
type Preferences struct {
	store storage.Store
}

func NewPreferences(store storage.Store) *Preferences {
	return &Preferences{store: store}
}

// Selection returns the saved units for cat, falling back to the defaults per field.
func (p *Preferences) Selection(ctx context.Context, cat Category) (Selection, error) {
	def, ok := defaultSelections[cat]
	if !ok {
		return Selection{}, errors.Wrapf(ErrUnknownCategory, "%q", cat)
	}

	from, err := p.get(ctx, "converterFrom"+keySuffixes[cat], def.From)
	if err != nil {
		return def, err
	}
	to, err := p.get(ctx, "converterTo"+keySuffixes[cat], def.To)
	if err != nil {
		return def, err
	}
	return Selection{From: from, To: to}, nil
}

func (p *Preferences) SetSelection(ctx context.Context, cat Category, sel Selection) error {
	suffix, ok := keySuffixes[cat]
	if !ok {
		return errors.Wrapf(ErrUnknownCategory, "%q", cat)
	}
	if err := p.store.Set(ctx, "converterFrom"+suffix, sel.From); err != nil {
		return errors.Wrap(err, "failed to save selection")
	}
	if err := p.store.Set(ctx, "converterTo"+suffix, sel.To); err != nil {
		return errors.Wrap(err, "failed to save selection")
	}
	return nil
}

// Swap exchanges the saved from and to units of cat and returns the new selection.
func (p *Preferences) Swap(ctx context.Context, cat Category) (Selection, error) {
	sel, err := p.Selection(ctx, cat)
	if err != nil {
		return sel, err
	}
	swapped := Selection{From: sel.To, To: sel.From}
	return swapped, p.SetSelection(ctx, cat, swapped)
}

// Theme returns the saved theme, or the first theme when none is saved.
func (p *Preferences) Theme(ctx context.Context) (string, error) {
	theme, err := p.get(ctx, ThemeKey, Themes[0])
	if err != nil {
		return Themes[0], err
	}
	if !validTheme(theme) {
		return Themes[0], nil
	}
	return theme, nil
}

func (p *Preferences) SetTheme(ctx context.Context, theme string) error {
	if !validTheme(theme) {
		return errors.Wrapf(ErrUnknownTheme, "%q", theme)
	}
	return errors.Wrap(p.store.Set(ctx, ThemeKey, theme), "failed to save theme")
}

func validTheme(theme string) bool {
	for _, t := range Themes {
		if t == theme {
			return true
		}
	}
	return false
}

func (p *Preferences) get(ctx context.Context, key, fallback string) (string, error) {
	v, err := p.store.Get(ctx, key)
	switch {
	case err == nil && v != "":
		return v, nil
	case err == nil, errors.Cause(err) == storage.ErrNotFound:
		return fallback, nil
	default:
		return fallback, errors.Wrapf(err, "failed to read %s", key)
	}
}
