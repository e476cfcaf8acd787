package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Position позиция карты в раскладе
type Position string

const (
	PositionPast    Position = "past"
	PositionPresent Position = "present"
	PositionFuture  Position = "future"
)

// SpreadPositions позиции в порядке вытягивания
var SpreadPositions = []Position{PositionPast, PositionPresent, PositionFuture}

// Arcana тип аркана
type Arcana string

const (
	ArcanaMajor Arcana = "major"
	ArcanaMinor Arcana = "minor"
)

// TarotCard карта колоды (справочник)
type TarotCard struct {
	ID              string `json:"name_short"`
	Name            string `json:"name"`
	Arcana          Arcana `json:"type"`
	MeaningUpright  string `json:"meaning_up"`
	MeaningReversed string `json:"meaning_rev"`
	Description     string `json:"desc"`
	Image           string `json:"img"`
}

// Card вытянутая карта, хранится внутри расклада
type Card struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Meaning     string   `json:"meaning"`
	Position    Position `json:"position"`
	Reversed    bool     `json:"reversed"`
	Description string   `json:"description"`
	Arcana      Arcana   `json:"arcana"`
	Image       string   `json:"image"`
}

// Cards набор карт расклада (JSONB)
type Cards []Card

// Scan реализует sql.Scanner для JSONB
func (c *Cards) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for cards: %T", value)
	}

	if len(bytes) == 0 {
		*c = nil
		return nil
	}

	return json.Unmarshal(bytes, c)
}

// Value реализует driver.Valuer
func (c Cards) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	return json.Marshal(c)
}

// Names имена карт в порядке позиций
func (c Cards) Names() []string {
	names := make([]string, 0, len(c))
	for _, card := range c {
		names = append(names, card.Name)
	}
	return names
}
