package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cardarena/arena/src/domain/card"
	"github.com/cardarena/arena/src/domain/rating"
	"github.com/cardarena/arena/src/domain/shared"
)

// Seed describes players, their decks and optional starting ratings.
type Seed struct {
	Players []SeedPlayer `yaml:"players"`
}

type SeedPlayer struct {
	ID     string     `yaml:"id"`
	Rating *int       `yaml:"rating"`
	Cards  []SeedCard `yaml:"cards"`
}

type SeedCard struct {
	ID      string  `yaml:"id"`
	Name    string  `yaml:"name"`
	Damage  float64 `yaml:"damage"`
	Element string  `yaml:"element"`
	Kind    string  `yaml:"kind"`
}

// DeckSeeder is implemented by deck stores that can be populated directly.
type DeckSeeder interface {
	SetDeck(ctx context.Context, player shared.PlayerID, cards ...card.Card) error
}

// LoadSeed parses a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &seed, nil
}

// Apply writes every player's deck and a fresh stats row. Existing stats rows
// are kept.
func (s *Seed) Apply(ctx context.Context, decks DeckSeeder, stats rating.Store, now time.Time) error {
	for _, p := range s.Players {
		player := shared.PlayerID(p.ID)
		cards := make([]card.Card, 0, len(p.Cards))
		for _, sc := range p.Cards {
			c, err := sc.toCard()
			if err != nil {
				return fmt.Errorf("player %s: %w", p.ID, err)
			}
			cards = append(cards, c)
		}
		if err := decks.SetDeck(ctx, player, cards...); err != nil {
			return fmt.Errorf("player %s: %w", p.ID, err)
		}

		if _, err := stats.GetStats(ctx, player); err == nil {
			continue
		}
		row, err := rating.NewPlayerStats(player, now)
		if err != nil {
			return err
		}
		row.Rating = p.Rating
		if err := stats.SaveStats(ctx, *row); err != nil {
			return fmt.Errorf("player %s: %w", p.ID, err)
		}
	}
	return nil
}

func (c SeedCard) toCard() (card.Card, error) {
	el, err := card.ParseElement(c.Element)
	if err != nil {
		return card.Card{}, err
	}
	kind, err := card.ParseKind(c.Kind)
	if err != nil {
		return card.Card{}, err
	}
	return card.New(shared.CardID(c.ID), c.Name, c.Damage, el, kind)
}
