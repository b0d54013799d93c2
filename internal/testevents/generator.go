package testevents

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
)

// scoreEvent is the only event the generated leaderboard configures. Its
// single rule awards the event input as points.
const scoreEvent = "SCORE"

const (
	minInput = 1
	maxInput = 100
)

// Workload is a generated event stream with the totals it should produce.
type Workload struct {
	Users    []string
	Events   []Event
	Expected map[string]int64
}

// Generate builds a reproducible workload for cfg. Users that receive no
// event are left out of Expected.
func Generate(cfg *Config) Workload {
	faker := gofakeit.New(cfg.Seed)

	users := make([]string, cfg.Users)
	for i := range users {
		users[i] = fmt.Sprintf("%s-%d", faker.Username(), i)
	}

	w := Workload{
		Users:    users,
		Events:   make([]Event, cfg.Events),
		Expected: make(map[string]int64, len(users)),
	}
	for i := range w.Events {
		e := Event{
			UserID: users[faker.IntRange(0, len(users)-1)],
			Event:  scoreEvent,
			Input:  int64(faker.IntRange(minInput, maxInput)),
		}
		w.Events[i] = e
		w.Expected[e.UserID] += e.Input
	}
	return w
}
