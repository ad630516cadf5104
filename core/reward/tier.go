package reward

import (
	"fmt"

	"github.com/pkg/errors"
)

// Tier is a bracket of consecutive streak days with its own per-day rewards.
type Tier struct {
	Level        int    `json:"level"`
	Name         string `json:"name"`
	DaysInLevel  int    `json:"days_in_level"`
	RewardsByDay []int  `json:"rewards_by_day"`
}

// DefaultTiers are ordered by level; the last tier repeats once the streak exceeds the others.
var DefaultTiers = []Tier{
	{Level: 1, Name: "Bronze", DaysInLevel: 7, RewardsByDay: []int{5, 5, 10, 10, 15, 15, 25}},
	{Level: 2, Name: "Silver", DaysInLevel: 7, RewardsByDay: []int{10, 10, 15, 15, 20, 20, 40}},
	{Level: 3, Name: "Gold", DaysInLevel: 7, RewardsByDay: []int{15, 15, 20, 20, 30, 30, 60}},
	{
		Level:        4,
		Name:         "Platinum",
		DaysInLevel:  14,
		RewardsByDay: []int{20, 20, 25, 25, 30, 30, 50, 20, 20, 25, 25, 30, 30, 100},
	},
}

var ErrInvalidTiers = errors.New("invalid reward tiers")

// ValidateTiers checks that `tiers` is non-empty and every tier has positive days
// and exactly one reward per day.
func ValidateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return errors.Wrap(ErrInvalidTiers, "no tiers")
	}
	for i, t := range tiers {
		if t.DaysInLevel <= 0 {
			return errors.Wrap(ErrInvalidTiers, fmt.Sprintf("tier %d: days in level must be positive", i))
		}
		if len(t.RewardsByDay) != t.DaysInLevel {
			return errors.Wrap(ErrInvalidTiers, fmt.Sprintf("tier %d: expected %d rewards, got %d", i, t.DaysInLevel, len(t.RewardsByDay)))
		}
	}
	return nil
}

// Resolve returns the tier whose cumulative day range contains totalStreakDays, the 1-indexed
// day within that tier and whether it is the last tier.
// Past the sum of all tiers, the last tier repeats.
// A zero streak resolves to the first tier with dayInLevel 0.
// `totalStreakDays` must be >= 0 and `tiers` must be valid (see ValidateTiers).
func Resolve(totalStreakDays int, tiers []Tier) (tier Tier, dayInLevel int, isFinalLevel bool) {
	last := len(tiers) - 1
	cumulative := 0
	for i, t := range tiers {
		if totalStreakDays <= cumulative+t.DaysInLevel {
			return t, totalStreakDays - cumulative, i == last
		}
		cumulative += t.DaysInLevel
	}
	tier = tiers[last]
	dayInLevel = (totalStreakDays-cumulative-1)%tier.DaysInLevel + 1
	return tier, dayInLevel, true
}

// Status is the reward progress of a student.
type Status struct {
	Tier            Tier `json:"tier"`
	DayInLevel      int  `json:"day_in_level"`
	IsFinalLevel    bool `json:"is_final_level"`
	TodayReward     int  `json:"today_reward"`
	TotalStreakDays int  `json:"total_streak_days"`
}

// NewStatus resolves the status of a streak. TodayReward is 0 when dayInLevel is 0.
func NewStatus(totalStreakDays int, tiers []Tier) Status {
	tier, day, final := Resolve(totalStreakDays, tiers)
	st := Status{
		Tier:            tier,
		DayInLevel:      day,
		IsFinalLevel:    final,
		TotalStreakDays: totalStreakDays,
	}
	if day > 0 && day <= len(tier.RewardsByDay) {
		st.TodayReward = tier.RewardsByDay[day-1]
	}
	return st
}
