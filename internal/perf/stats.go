package perf

import "github.com/sharronesofer/visual-dm-sub009/internal/npc"

// demographic holds per-race annual rates: births and deaths per thousand,
// plus the fraction of the population economically active.
type demographic struct {
	birthRate float64
	deathRate float64
	activity  float64
}

var demographics = map[npc.Race]demographic{
	npc.RaceHuman:    {birthRate: 35, deathRate: 30, activity: 0.62},
	npc.RaceElf:      {birthRate: 4, deathRate: 3, activity: 0.55},
	npc.RaceDwarf:    {birthRate: 12, deathRate: 10, activity: 0.70},
	npc.RaceOrc:      {birthRate: 45, deathRate: 42, activity: 0.58},
	npc.RaceHalfling: {birthRate: 28, deathRate: 24, activity: 0.65},
}

// Statistics is the analytic summary of a tier-4 population: no per-NPC
// processing happens, rates come straight from race demographics weighted by
// headcount.
type Statistics struct {
	Population       int     `json:"population"`
	BirthRate        float64 `json:"birth_rate"`
	DeathRate        float64 `json:"death_rate"`
	EconomicActivity float64 `json:"economic_activity"`
	DailyBirths      float64 `json:"expected_daily_births"`
	DailyDeaths      float64 `json:"expected_daily_deaths"`
}

// DeriveStatistics computes population-weighted rates from race headcounts.
func DeriveStatistics(counts map[npc.Race]int) Statistics {
	var s Statistics
	var births, deaths, active float64
	for race, n := range counts {
		if n <= 0 {
			continue
		}
		d := demographics[race]
		s.Population += n
		births += float64(n) * d.birthRate
		deaths += float64(n) * d.deathRate
		active += float64(n) * d.activity
	}
	if s.Population == 0 {
		return s
	}
	pop := float64(s.Population)
	s.BirthRate = births / pop
	s.DeathRate = deaths / pop
	s.EconomicActivity = active / pop
	s.DailyBirths = births / 1000 / 365
	s.DailyDeaths = deaths / 1000 / 365
	return s
}
