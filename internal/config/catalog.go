package config

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"barberbot/internal/model"
	"barberbot/internal/slots"
)

// ServiceConfig is one catalog entry. A missing active flag means active.
type ServiceConfig struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Price       float64 `yaml:"price"`
	Duration    int     `yaml:"duration"`
	Description string  `yaml:"description"`
	Active      *bool   `yaml:"active,omitempty"`
}

// HolidayConfig closes the shop on a date.
type HolidayConfig struct {
	Date string `yaml:"date"` // "2026-01-01"
	Name string `yaml:"name"` // "Ano Novo"
}

// Catalog is the root of services.yaml.
type Catalog struct {
	Services []ServiceConfig `yaml:"services"`
	Holidays []HolidayConfig `yaml:"holidays"`
}

// DefaultCatalog is used when no services file exists.
func DefaultCatalog() *Catalog {
	var c Catalog
	for _, s := range model.DefaultServices() {
		c.Services = append(c.Services, ServiceConfig{
			ID:          s.ID,
			Name:        s.Name,
			Price:       s.Price,
			Duration:    s.Duration,
			Description: s.Description,
		})
	}
	return &c
}

// LoadCatalog reads and validates services.yaml.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read services catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse services catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate services catalog: %w", err)
	}
	return &c, nil
}

// Validate checks ids, prices, durations and holiday dates.
func (c *Catalog) Validate() error {
	if len(c.Services) == 0 {
		return fmt.Errorf("%w: at least one service is required", ErrInvalid)
	}
	seen := make(map[string]struct{}, len(c.Services))
	for i, s := range c.Services {
		if s.ID == "" {
			return fmt.Errorf("%w: service %d: id is required", ErrInvalid, i+1)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate service id %s", ErrInvalid, s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.Name == "" {
			return fmt.Errorf("%w: service %s: name is required", ErrInvalid, s.ID)
		}
		if s.Price < 0 {
			return fmt.Errorf("%w: service %s: price must not be negative", ErrInvalid, s.ID)
		}
		if s.Duration <= 0 {
			return fmt.Errorf("%w: service %s: duration must be positive", ErrInvalid, s.ID)
		}
	}
	for _, h := range c.Holidays {
		if _, err := time.Parse(slots.DateLayout, h.Date); err != nil {
			return fmt.Errorf("%w: holiday %q: %v", ErrInvalid, h.Date, err)
		}
	}
	return nil
}

// ModelServices converts the catalog for storage.
func (c *Catalog) ModelServices() []model.Service {
	out := make([]model.Service, 0, len(c.Services))
	for _, s := range c.Services {
		active := s.Active == nil || *s.Active
		out = append(out, model.Service{
			ID:          s.ID,
			Name:        s.Name,
			Price:       s.Price,
			Duration:    s.Duration,
			Description: s.Description,
			Active:      active,
		})
	}
	return out
}

// HolidayDates lists the closed dates.
func (c *Catalog) HolidayDates() []string {
	out := make([]string, 0, len(c.Holidays))
	for _, h := range c.Holidays {
		out = append(out, h.Date)
	}
	return out
}

// CatalogChange is what a reload adds to the stored catalog. Services keep
// the name, price and duration they were created with, so edits to an
// existing entry are only reported in Frozen.
type CatalogChange struct {
	Added       []string
	Activated   []string
	Deactivated []string
	Frozen      []string
	Holidays    bool
}

// Empty reports whether the reload changes nothing.
func (ch CatalogChange) Empty() bool {
	return len(ch.Added)+len(ch.Activated)+len(ch.Deactivated)+len(ch.Frozen) == 0 && !ch.Holidays
}

// Diff compares next against c. A service dropped from next counts as
// deactivated.
func (c *Catalog) Diff(next *Catalog) CatalogChange {
	var ch CatalogChange
	prev := make(map[string]model.Service, len(c.Services))
	for _, s := range c.ModelServices() {
		prev[s.ID] = s
	}
	for _, s := range next.ModelServices() {
		old, ok := prev[s.ID]
		delete(prev, s.ID)
		switch {
		case !ok:
			ch.Added = append(ch.Added, s.ID)
			continue
		case s.Active && !old.Active:
			ch.Activated = append(ch.Activated, s.ID)
		case !s.Active && old.Active:
			ch.Deactivated = append(ch.Deactivated, s.ID)
		}
		if s.Name != old.Name || s.Price != old.Price || s.Duration != old.Duration || s.Description != old.Description {
			ch.Frozen = append(ch.Frozen, s.ID)
		}
	}
	for id, old := range prev {
		if old.Active {
			ch.Deactivated = append(ch.Deactivated, id)
		}
	}
	slices.Sort(ch.Deactivated)
	ch.Holidays = !slices.Equal(c.HolidayDates(), next.HolidayDates())
	return ch
}

// Watch polls path every interval and calls onChange with each catalog that
// differs from the last one seen, starting from c. It returns when ctx ends.
// Holidays are fixed at startup, so a holiday edit is only logged.
func (c *Catalog) Watch(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onChange func(*Catalog)) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	log := logger.With().Str("component", "catalog").Str("path", path).Logger()

	current := c
	var lastMod time.Time

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := os.Stat(path)
		if err != nil || !info.ModTime().After(lastMod) {
			continue
		}
		lastMod = info.ModTime()

		next, err := LoadCatalog(path)
		if err != nil {
			log.Error().Err(err).Msg("services catalog reload failed, keeping the previous one")
			continue
		}
		ch := current.Diff(next)
		if ch.Empty() {
			continue
		}
		if len(ch.Frozen) > 0 {
			log.Warn().Strs("services", ch.Frozen).Msg("existing services are immutable; add a new id to change name, price or duration")
		}
		if ch.Holidays {
			log.Warn().Msg("holiday changes apply on restart")
		}
		log.Info().
			Strs("added", ch.Added).
			Strs("activated", ch.Activated).
			Strs("deactivated", ch.Deactivated).
			Msg("services catalog reloaded")
		current = next
		if onChange != nil {
			onChange(next)
		}
	}
}
