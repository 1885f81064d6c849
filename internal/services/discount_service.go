// Package services – DiscountService
//
// This file implements the once-a-day dice game: two dice are rolled through
// the transport and equal values win a discount on the next visit.
package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/tbourn/go-booking-bot/internal/domain"
)

// DiceRoller rolls one six-sided die for a channel and returns 1..6. The
// transport implements it so the user sees the roll animation.
type DiceRoller interface {
	RollDice(ctx context.Context, channelID int64) (int, error)
}

// RandomDice rolls locally with crypto/rand, for transports that cannot
// render dice.
type RandomDice struct{}

// RollDice implements DiceRoller.
func (RandomDice) RollDice(context.Context, int64) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(6))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + 1, nil
}

// DiscountOutcome is the result of one game.
type DiscountOutcome struct {
	First   int
	Second  int
	Won     bool
	Percent int
}

// DiscountService tracks who already played today. The record is in memory
// and resets on restart.
type DiscountService struct {
	Percent  int
	Dice     DiceRoller
	Location *time.Location
	Now      func() time.Time

	mu     sync.Mutex
	played map[int64]string
}

// NewDiscountService returns a game awarding percent off.
func NewDiscountService(percent int, dice DiceRoller, loc *time.Location) *DiscountService {
	if dice == nil {
		dice = RandomDice{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &DiscountService{Percent: percent, Dice: dice, Location: loc, Now: time.Now, played: map[int64]string{}}
}

// Play rolls two dice for channelID unless it already played today.
func (s *DiscountService) Play(ctx context.Context, channelID int64) (DiscountOutcome, error) {
	today := s.today()
	if !s.claim(channelID, today) {
		discountGames.WithLabelValues("repeat").Inc()
		return DiscountOutcome{}, ErrAlreadyPlayedToday
	}

	first, err := s.Dice.RollDice(ctx, channelID)
	if err != nil {
		s.release(channelID, today)
		return DiscountOutcome{}, fmt.Errorf("roll dice: %w", err)
	}
	second, err := s.Dice.RollDice(ctx, channelID)
	if err != nil {
		s.release(channelID, today)
		return DiscountOutcome{}, fmt.Errorf("roll dice: %w", err)
	}

	out := DiscountOutcome{First: first, Second: second, Won: first == second}
	if out.Won {
		out.Percent = s.Percent
		discountGames.WithLabelValues("won").Inc()
	} else {
		discountGames.WithLabelValues("lost").Inc()
	}
	return out, nil
}

func (s *DiscountService) claim(channelID int64, day string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.played == nil {
		s.played = map[int64]string{}
	}
	if s.played[channelID] == day {
		return false
	}
	s.played[channelID] = day
	return true
}

func (s *DiscountService) release(channelID int64, day string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.played[channelID] == day {
		delete(s.played, channelID)
	}
}

func (s *DiscountService) today() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc).Format(domain.DateLayout)
}
