package deck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/jwren/castellan/internal/model"
	"github.com/jwren/castellan/internal/storage/memory"
	"github.com/jwren/castellan/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	storage *memory.Storage
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.storage = memory.New()
	s.service = New(s.storage, NewCatalogValidator(), testutil.NopLogger())
}

func (s *ServiceSuite) catalog() *model.CardCatalog {
	return &model.CardCatalog{
		Cards: map[string]model.Card{
			"01001": {Code: "01001", Name: "Valar", Type: "agenda"},
			"01002": {Code: "01002", Name: "Banner", Type: "agenda"},
			"02001": {Code: "02001", Name: "Knight", Type: "character", Faction: "stark"},
		},
		Restricted: []string{"01002"},
	}
}

func (s *ServiceSuite) saveDeck(deck *model.Deck) {
	s.Require().NoError(s.storage.SaveDeck(s.ctx, deck))
}

func (s *ServiceSuite) TestSelectForGameValidDeck() {
	s.Require().NoError(s.storage.SaveCatalog(s.ctx, s.catalog()))
	s.saveDeck(&model.Deck{ID: "d1", Owner: "alice", Name: "Winter", Faction: "stark", Agenda: "01001"})

	deck, err := s.service.SelectForGame(s.ctx, "alice", "d1")
	s.Require().NoError(err)
	s.True(deck.Status.Valid)
	s.Empty(deck.Status.Errors)
}

func (s *ServiceSuite) TestSelectForGameWrongOwner() {
	s.saveDeck(&model.Deck{ID: "d1", Owner: "alice", Faction: "stark"})

	_, err := s.service.SelectForGame(s.ctx, "bob", "d1")
	s.ErrorIs(err, model.ErrDeckNotFound)
}

func (s *ServiceSuite) TestSelectForGameUnknownDeck() {
	_, err := s.service.SelectForGame(s.ctx, "alice", "missing")
	s.ErrorIs(err, model.ErrDeckNotFound)
}

func (s *ServiceSuite) TestSelectForGameWithoutCatalog() {
	s.saveDeck(&model.Deck{ID: "d1", Owner: "alice", Faction: "stark"})

	deck, err := s.service.SelectForGame(s.ctx, "alice", "d1")
	s.Require().NoError(err)
	s.False(deck.Status.Valid)
	s.Contains(deck.Status.Errors, "card catalog unavailable")
}

func (s *ServiceSuite) TestListForUser() {
	s.saveDeck(&model.Deck{ID: "d1", Owner: "alice", Faction: "stark"})
	s.saveDeck(&model.Deck{ID: "d2", Owner: "alice", Faction: "stark"})
	s.saveDeck(&model.Deck{ID: "d3", Owner: "bob", Faction: "lannister"})

	decks, err := s.service.ListForUser(s.ctx, "alice")
	s.Require().NoError(err)
	s.Len(decks, 2)
}

type ValidatorSuite struct {
	suite.Suite
	validator CatalogValidator
	catalog   *model.CardCatalog
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func (s *ValidatorSuite) SetupTest() {
	s.validator = NewCatalogValidator()
	s.catalog = &model.CardCatalog{
		Cards: map[string]model.Card{
			"01001": {Code: "01001", Name: "Valar", Type: "agenda"},
			"01002": {Code: "01002", Name: "Banner", Type: "agenda"},
			"02001": {Code: "02001", Name: "Knight", Type: "character", Faction: "stark"},
		},
		Restricted: []string{"01002"},
	}
}

func (s *ValidatorSuite) TestNoAgendaIsLegal() {
	status := s.validator.Validate(&model.Deck{Faction: "stark"}, s.catalog)
	s.True(status.Valid)
}

func (s *ValidatorSuite) TestMissingFaction() {
	status := s.validator.Validate(&model.Deck{}, s.catalog)
	s.False(status.Valid)
	s.Contains(status.Errors, "deck has no faction")
}

func (s *ValidatorSuite) TestUnknownFaction() {
	status := s.validator.Validate(&model.Deck{Faction: "dorne"}, s.catalog)
	s.False(status.Valid)
	s.Contains(status.Errors, `unknown faction "dorne"`)
}

func (s *ValidatorSuite) TestUnknownAgenda() {
	status := s.validator.Validate(&model.Deck{Faction: "stark", Agenda: "99999"}, s.catalog)
	s.False(status.Valid)
	s.Contains(status.Errors, `unknown agenda "99999"`)
}

func (s *ValidatorSuite) TestNonAgendaCardAsAgenda() {
	status := s.validator.Validate(&model.Deck{Faction: "stark", Agenda: "02001"}, s.catalog)
	s.False(status.Valid)
	s.Contains(status.Errors, `card "02001" is not an agenda`)
}

func (s *ValidatorSuite) TestRestrictedAgenda() {
	status := s.validator.Validate(&model.Deck{Faction: "stark", Agenda: "01002"}, s.catalog)
	s.False(status.Valid)
	s.Contains(status.Errors, `agenda "01002" is restricted`)
}
