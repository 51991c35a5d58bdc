// Package stats computes the aggregate views shown on the admin statistics page.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/nysc/volunteers/internal/domain"
)

// topDistricts bounds the district distribution.
const topDistricts = 10

// Overview holds the headline numbers.
type Overview struct {
	TotalVolunteers int `json:"totalVolunteers"`
	ActiveDistricts int `json:"activeDistricts"`
	ServiceTypes    int `json:"serviceTypes"`
	GrowthRate      int `json:"growthRate"`
}

type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type DistrictCount struct {
	District string `json:"district"`
	Count    int    `json:"count"`
}

type AgeCount struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

type SexCount struct {
	Sex   string `json:"sex"`
	Count int    `json:"count"`
}

type DurationCount struct {
	Duration string `json:"duration"`
	Count    int    `json:"count"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Snapshot is the full statistics payload.
type Snapshot struct {
	Overview           Overview        `json:"overview"`
	VolunteerTypeStats []TypeCount     `json:"volunteerTypeStats"`
	DistrictStats      []DistrictCount `json:"districtStats"`
	AgeStats           []AgeCount      `json:"ageStats"`
	SexStats           []SexCount      `json:"sexStats"`
	DurationStats      []DurationCount `json:"durationStats"`
	MonthlyStats       []MonthCount    `json:"monthlyStats"`
	StatusStats        []StatusCount   `json:"statusStats"`
}

// counter counts string keys and remembers the order keys were first seen.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) len() int { return len(c.order) }

// byCountDesc returns keys sorted by descending count, ties in first-seen order.
func (c *counter) byCountDesc() []string {
	keys := append([]string(nil), c.order...)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	return keys
}

// monthRange is a calendar month [start, end).
type monthRange struct {
	start, end time.Time
}

func (m monthRange) contains(t time.Time) bool {
	return !t.Before(m.start) && t.Before(m.end)
}

// calendarMonth returns the month offset months away from now's month, in now's location.
func calendarMonth(now time.Time, offset int) monthRange {
	start := time.Date(now.Year(), now.Month()+time.Month(offset), 1, 0, 0, 0, 0, now.Location())
	return monthRange{start: start, end: start.AddDate(0, 1, 0)}
}

// GrowthRate is the percentage change from prev to last, rounded with halves
// going up (-2.5 becomes -2). It is 0 when prev is 0.
func GrowthRate(last, prev int) int {
	if prev == 0 {
		return 0
	}
	return int(math.Floor(float64(last-prev)/float64(prev)*100 + 0.5))
}

// Compute aggregates volunteers into a Snapshot. now fixes the current month
// for the monthly trend and growth rate.
func Compute(volunteers []domain.Volunteer, now time.Time) Snapshot {
	types := newCounter()
	districts := newCounter()
	ages := newCounter()
	sexes := newCounter()
	durations := newCounter()
	statuses := newCounter()

	months := [3]monthRange{calendarMonth(now, -2), calendarMonth(now, -1), calendarMonth(now, 0)}
	var monthCounts [3]int

	for i := range volunteers {
		v := &volunteers[i]
		types.add(v.VolunteerType)
		districts.add(v.District)
		ages.add(v.AgeRange)
		sexes.add(v.Sex)
		durations.add(domain.DurationLabel(v.Duration))
		statuses.add(string(v.Status))

		for m := range months {
			if months[m].contains(v.CreatedAt) {
				monthCounts[m]++
				break
			}
		}
	}

	snap := Snapshot{
		Overview: Overview{
			TotalVolunteers: len(volunteers),
			ActiveDistricts: districts.len(),
			ServiceTypes:    types.len(),
			// months[1] is last month, months[0] the month before it.
			GrowthRate: GrowthRate(monthCounts[1], monthCounts[0]),
		},
		VolunteerTypeStats: make([]TypeCount, 0, types.len()),
		DistrictStats:      make([]DistrictCount, 0, min(districts.len(), topDistricts)),
		AgeStats:           make([]AgeCount, 0, ages.len()),
		SexStats:           make([]SexCount, 0, sexes.len()),
		DurationStats:      make([]DurationCount, 0, durations.len()),
		MonthlyStats:       make([]MonthCount, 0, len(months)),
		StatusStats:        make([]StatusCount, 0, statuses.len()),
	}

	for _, k := range types.byCountDesc() {
		snap.VolunteerTypeStats = append(snap.VolunteerTypeStats, TypeCount{Type: k, Count: types.counts[k]})
	}
	for i, k := range districts.byCountDesc() {
		if i == topDistricts {
			break
		}
		snap.DistrictStats = append(snap.DistrictStats, DistrictCount{District: k, Count: districts.counts[k]})
	}
	for _, k := range ages.order {
		snap.AgeStats = append(snap.AgeStats, AgeCount{Range: k, Count: ages.counts[k]})
	}
	for _, k := range sexes.order {
		snap.SexStats = append(snap.SexStats, SexCount{Sex: domain.Capitalize(k), Count: sexes.counts[k]})
	}
	for _, k := range durations.order {
		snap.DurationStats = append(snap.DurationStats, DurationCount{Duration: k, Count: durations.counts[k]})
	}
	for m := range months {
		snap.MonthlyStats = append(snap.MonthlyStats, MonthCount{
			Month: months[m].start.Month().String()[:3],
			Count: monthCounts[m],
		})
	}
	for _, k := range statuses.order {
		snap.StatusStats = append(snap.StatusStats, StatusCount{Status: domain.Capitalize(k), Count: statuses.counts[k]})
	}

	return snap
}
