package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Dosada05/matchdesk/models"
)

// ResultPayload carries the score and detail fields a team may write.
// Absent fields keep their stored value; an empty string clears the field.
type ResultPayload struct {
	Player         *string      `json:"player"`
	OpponentPlayer *string      `json:"opponent_player"`
	Deck           *string      `json:"deck"`
	OpponentDeck   *string      `json:"opponent_deck"`
	SelfScore      *string      `json:"self_score"`
	OpponentScore  *string      `json:"opponent_score"`
	Games          *[]GameInput `json:"games"`
}

type GameInput struct {
	GameNumber     int     `json:"game_number"`
	Player         *string `json:"player"`
	OpponentPlayer *string `json:"opponent_player"`
	Deck           *string `json:"deck"`
	OpponentDeck   *string `json:"opponent_deck"`
	SelfScore      *string `json:"self_score"`
	OpponentScore  *string `json:"opponent_score"`
}

// normalizedPayload is a validated payload ready to be applied to a match.
type normalizedPayload struct {
	fields ResultPayload
	games  []models.GameResult
}

func normalizeText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}

func (p ResultPayload) normalize() (*normalizedPayload, error) {
	out := &normalizedPayload{fields: ResultPayload{
		Player:         normalizeText(p.Player),
		OpponentPlayer: normalizeText(p.OpponentPlayer),
		Deck:           normalizeText(p.Deck),
		OpponentDeck:   normalizeText(p.OpponentDeck),
	}}

	// Keep "present but empty" distinct from "absent" for scores.
	for _, pair := range []struct {
		in  *string
		out **string
	}{{p.SelfScore, &out.fields.SelfScore}, {p.OpponentScore, &out.fields.OpponentScore}} {
		if pair.in == nil {
			continue
		}
		score, err := normalizeScore(pair.in)
		if err != nil {
			return nil, err
		}
		if score == nil {
			score = new(string)
		}
		*pair.out = score
	}

	if p.Games != nil {
		games, err := buildGames(*p.Games)
		if err != nil {
			return nil, err
		}
		out.games = games
		out.fields.Games = p.Games
	}
	return out, nil
}

// buildGames validates game numbers and scores and returns the games ordered by number.
func buildGames(inputs []GameInput) ([]models.GameResult, error) {
	games := make([]models.GameResult, 0, len(inputs))
	seen := make(map[int]struct{}, len(inputs))
	for _, in := range inputs {
		if in.GameNumber <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidGames, in.GameNumber)
		}
		if _, dup := seen[in.GameNumber]; dup {
			return nil, fmt.Errorf("%w: game %d appears twice", ErrInvalidGames, in.GameNumber)
		}
		seen[in.GameNumber] = struct{}{}

		selfScore, err := normalizeScore(in.SelfScore)
		if err != nil {
			return nil, err
		}
		opponentScore, err := normalizeScore(in.OpponentScore)
		if err != nil {
			return nil, err
		}
		games = append(games, models.GameResult{
			GameNumber:     in.GameNumber,
			Player:         emptyToNil(normalizeText(in.Player)),
			OpponentPlayer: emptyToNil(normalizeText(in.OpponentPlayer)),
			Deck:           emptyToNil(normalizeText(in.Deck)),
			OpponentDeck:   emptyToNil(normalizeText(in.OpponentDeck)),
			SelfScore:      selfScore,
			OpponentScore:  opponentScore,
		})
	}
	sort.Slice(games, func(i, j int) bool { return games[i].GameNumber < games[j].GameNumber })
	return games, nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// applyTo copies the present fields onto m. It reports whether the games must be replaced.
func (p *normalizedPayload) applyTo(m *models.Match) bool {
	set := func(dst **string, src *string) {
		if src != nil {
			*dst = emptyToNil(src)
		}
	}
	set(&m.Player, p.fields.Player)
	set(&m.OpponentPlayer, p.fields.OpponentPlayer)
	set(&m.Deck, p.fields.Deck)
	set(&m.OpponentDeck, p.fields.OpponentDeck)
	set(&m.SelfScore, p.fields.SelfScore)
	set(&m.OpponentScore, p.fields.OpponentScore)

	if p.fields.Games == nil {
		return false
	}
	m.Games = p.games
	return true
}
