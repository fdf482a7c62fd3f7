package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// StaticProvider serves the built-in bakery catalog. It is the default
// backend for local development and the simulator.
type StaticProvider struct {
	categories []Category
	items      map[string][]Item
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		categories: []Category{
			{ID: "cakes", Name: "Cakes 🎂"},
			{ID: "bread", Name: "Bread 🍞"},
			{ID: "pastry", Name: "Pastries 🧁"},
		},
		items: map[string][]Item{
			"cakes": {
				{ID: "cake_choco", Name: "Chocolate Cake", Price: decimal.NewFromInt(500)},
				{ID: "cake_vanilla", Name: "Vanilla Cake", Price: decimal.NewFromInt(450)},
			},
			"bread": {
				{ID: "bread_white", Name: "White Bread", Price: decimal.NewFromInt(60)},
				{ID: "bread_brown", Name: "Brown Bread", Price: decimal.NewFromInt(70)},
			},
			"pastry": {
				{ID: "pastry_croissant", Name: "Croissant", Price: decimal.NewFromInt(80)},
				{ID: "pastry_muffin", Name: "Muffin", Price: decimal.NewFromInt(90)},
			},
		},
	}
}

func (p *StaticProvider) Categories(_ context.Context) ([]Category, error) {
	out := make([]Category, len(p.categories))
	copy(out, p.categories)
	return out, nil
}

func (p *StaticProvider) ItemsByCategory(_ context.Context, categoryID string) ([]Item, error) {
	items := p.items[categoryID]
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}

func (p *StaticProvider) ItemByID(_ context.Context, itemID string) (*Item, error) {
	for _, items := range p.items {
		for _, item := range items {
			if item.ID == itemID {
				found := item
				return &found, nil
			}
		}
	}
	return nil, nil
}
