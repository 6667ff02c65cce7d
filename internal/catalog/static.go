package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/models"
)

// Menu is the on-disk layout of a static catalog file.
type Menu struct {
	Categories []models.Category `yaml:"categories"`
	Products   []models.Product  `yaml:"products"`
	Combos     []models.Combo    `yaml:"combos"`
	Promotions models.Promotions `yaml:"promotions"`
	Coupons    []models.Coupon   `yaml:"coupons"`
	// Tables seeds the floor plan when running on the in-memory store.
	Tables []models.Table `yaml:"tables"`
}

// Static serves a catalog held in memory
type Static struct {
	products   map[string]*models.Product
	combos     map[string]*models.Combo
	promotions models.Promotions
	coupons    []models.Coupon
	tables     []models.Table
}

// LoadFile reads a YAML menu file.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu file: %w", err)
	}

	var menu Menu
	if err := yaml.Unmarshal(data, &menu); err != nil {
		return nil, fmt.Errorf("failed to parse menu file: %w", err)
	}
	return NewStatic(menu)
}

// NewStatic indexes the menu and resolves each product's station from its category.
func NewStatic(menu Menu) (*Static, error) {
	stations := make(map[string]models.Station, len(menu.Categories))
	for _, c := range menu.Categories {
		if c.Station != "" && !c.Station.Valid() {
			return nil, fmt.Errorf("category %s has unknown station %q", c.ID, c.Station)
		}
		stations[c.ID] = c.Station
	}

	s := &Static{
		products:   make(map[string]*models.Product, len(menu.Products)),
		combos:     make(map[string]*models.Combo, len(menu.Combos)),
		promotions: menu.Promotions,
		coupons:    menu.Coupons,
		tables:     menu.Tables,
	}

	for i := range menu.Products {
		p := menu.Products[i]
		if p.ID == "" {
			return nil, fmt.Errorf("product at index %d has no id", i)
		}
		if p.BasePriceCents < 0 {
			return nil, fmt.Errorf("product %s has a negative price", p.ID)
		}
		p.Station = stations[p.CategoryID]
		s.products[p.ID] = &p
	}

	for i := range menu.Combos {
		c := menu.Combos[i]
		for _, comp := range c.Components {
			if _, ok := s.products[comp.ProductID]; !ok {
				return nil, fmt.Errorf("combo %s references unknown product %s", c.ID, comp.ProductID)
			}
		}
		s.combos[c.ID] = &c
	}

	for _, p := range menu.Promotions.Percent {
		if p.Percent <= 0 || p.Percent > 100 {
			return nil, fmt.Errorf("promotion %s percent must be between 1 and 100", p.ID)
		}
		if err := p.Window.Validate(); err != nil {
			return nil, fmt.Errorf("promotion %s: %w", p.ID, err)
		}
	}
	for _, p := range menu.Promotions.TwoForOne {
		if err := p.Window.Validate(); err != nil {
			return nil, fmt.Errorf("promotion %s: %w", p.ID, err)
		}
	}

	return s, nil
}

func (s *Static) Product(_ context.Context, id string) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok || !p.IsActive {
		return nil, apperr.NotFound("product", id)
	}
	cp := *p
	cp.Modifiers = append([]models.Modifier(nil), p.Modifiers...)
	return &cp, nil
}

func (s *Static) Combo(_ context.Context, id string) (*models.Combo, error) {
	c, ok := s.combos[id]
	if !ok || !c.IsActive {
		return nil, apperr.NotFound("combo", id)
	}
	cp := *c
	cp.Components = append([]models.ComboComponent(nil), c.Components...)
	return &cp, nil
}

func (s *Static) CurrentPromotions(_ context.Context) (models.Promotions, error) {
	return s.promotions, nil
}

// Coupons returns the coupons declared in the menu file, used to seed the store.
func (s *Static) Coupons() []models.Coupon {
	return s.coupons
}

// Tables returns the floor plan declared in the menu file.
func (s *Static) Tables() []models.Table {
	return s.tables
}
