package deck

import (
	"fmt"

	"github.com/jwren/castellan/internal/model"
)

// CatalogValidator validates a deck's selection codes against the card
// catalog: the faction must be a known faction, and the agenda (when one
// is chosen) must be a known agenda card that is not on the restricted
// list.
type CatalogValidator struct{}

var _ Validator = CatalogValidator{}

// NewCatalogValidator creates a CatalogValidator
func NewCatalogValidator() CatalogValidator {
	return CatalogValidator{}
}

// Validate checks the deck against the catalog
func (CatalogValidator) Validate(deck *model.Deck, catalog *model.CardCatalog) model.DeckStatus {
	var errs []string

	if deck.Faction == "" {
		errs = append(errs, "deck has no faction")
	} else if !catalogHasFaction(catalog, deck.Faction) {
		errs = append(errs, fmt.Sprintf("unknown faction %q", deck.Faction))
	}

	if deck.Agenda != "" {
		card, ok := catalog.Cards[deck.Agenda]
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("unknown agenda %q", deck.Agenda))
		case card.Type != "agenda":
			errs = append(errs, fmt.Sprintf("card %q is not an agenda", deck.Agenda))
		case isRestricted(catalog, deck.Agenda):
			errs = append(errs, fmt.Sprintf("agenda %q is restricted", deck.Agenda))
		}
	}

	return model.DeckStatus{Valid: len(errs) == 0, Errors: errs}
}

func catalogHasFaction(catalog *model.CardCatalog, faction string) bool {
	for _, card := range catalog.Cards {
		if card.Faction == faction {
			return true
		}
	}
	return false
}

func isRestricted(catalog *model.CardCatalog, code string) bool {
	for _, restricted := range catalog.Restricted {
		if restricted == code {
			return true
		}
	}
	return false
}
