package dashboard

import (
	"fmt"
	"sort"
)

// TeamAggregate is one team's goal totals over finished fixtures
type TeamAggregate struct {
	TeamID       int64  `json:"team_id"`
	Name         string `json:"name"`
	Played       int    `json:"played"`
	GoalsFor     int    `json:"goals_for"`
	GoalsAgainst int    `json:"goals_against"`
	GoalDiff     int    `json:"goal_diff"`
}

// ScoreCount is one scoreline and how often it occurred
type ScoreCount struct {
	Score string `json:"score"`
	Count int    `json:"count"`
}

// ComputeTeamAggregates folds finished fixtures into per-team goals
// for/against. Fixtures missing either score are skipped. The result is
// sorted by goal difference, goals for, then team id for a stable order.
func ComputeTeamAggregates(fixtures []Fixture, names map[int64]string) []TeamAggregate {
	byTeam := make(map[int64]*TeamAggregate)

	team := func(id int64) *TeamAggregate {
		agg, ok := byTeam[id]
		if !ok {
			agg = &TeamAggregate{TeamID: id, Name: names[id]}
			byTeam[id] = agg
		}
		return agg
	}

	for _, f := range fixtures {
		if f.HomeScore == nil || f.AwayScore == nil {
			continue
		}

		home := team(f.TeamH)
		home.Played++
		home.GoalsFor += int(*f.HomeScore)
		home.GoalsAgainst += int(*f.AwayScore)

		away := team(f.TeamA)
		away.Played++
		away.GoalsFor += int(*f.AwayScore)
		away.GoalsAgainst += int(*f.HomeScore)
	}

	table := make([]TeamAggregate, 0, len(byTeam))
	for _, agg := range byTeam {
		agg.GoalDiff = agg.GoalsFor - agg.GoalsAgainst
		table = append(table, *agg)
	}

	sort.Slice(table, func(i, j int) bool {
		if table[i].GoalDiff != table[j].GoalDiff {
			return table[i].GoalDiff > table[j].GoalDiff
		}
		if table[i].GoalsFor != table[j].GoalsFor {
			return table[i].GoalsFor > table[j].GoalsFor
		}
		return table[i].TeamID < table[j].TeamID
	})

	return table
}

// ComputeScoreDistribution counts scoreline frequencies ("2-1") across
// fixtures with both scores present, most common first.
func ComputeScoreDistribution(fixtures []Fixture) []ScoreCount {
	counts := make(map[string]int)
	for _, f := range fixtures {
		if f.HomeScore == nil || f.AwayScore == nil {
			continue
		}
		counts[fmt.Sprintf("%d-%d", *f.HomeScore, *f.AwayScore)]++
	}

	scores := make([]ScoreCount, 0, len(counts))
	for score, count := range counts {
		scores = append(scores, ScoreCount{Score: score, Count: count})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Count != scores[j].Count {
			return scores[i].Count > scores[j].Count
		}
		return scores[i].Score < scores[j].Score
	})

	return scores
}
