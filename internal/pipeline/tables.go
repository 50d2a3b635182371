package pipeline

// Kind is the target type a column is coerced to before upsert.
type Kind int

const (
	// Raw passes the source value through untouched.
	Raw Kind = iota
	// Int coerces to a nullable integer.
	Int
	// Bool coerces to a nullable boolean (tri-state: true/false/null).
	Bool
	// Timestamp coerces to an ISO-8601 UTC string (YYYY-MM-DDTHH:MM:SSZ).
	Timestamp
)

// Column is one allow-listed target column and its coercion kind.
type Column struct {
	Name string
	Kind Kind
}

// Table describes the target shape of one store table: the ordered
// allow-list of columns and any source fields stripped before
// normalization. Columns not listed here never reach the store; listed
// columns absent from the source are materialized as null.
type Table struct {
	Name    string
	Columns []Column
	// Exclude names source fields removed before normalization
	// (e.g. the fixtures' nested stats array, which is large and unstable).
	Exclude []string
}

// ColumnNames returns the ordered allow-list of column names.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Players is the target shape of the players table, fed from the
// bootstrap document's elements array.
var Players = Table{
	Name: "players",
	Columns: []Column{
		{Name: "id", Kind: Int},
		{Name: "first_name", Kind: Raw},
		{Name: "second_name", Kind: Raw},
		{Name: "web_name", Kind: Raw},
		{Name: "team", Kind: Int},
		{Name: "now_cost", Kind: Int},
		{Name: "total_points", Kind: Int},
		{Name: "selected_by_percent", Kind: Raw},
		{Name: "minutes", Kind: Int},
		{Name: "form", Kind: Raw},
		{Name: "ep_next", Kind: Raw},
		{Name: "ep_this", Kind: Raw},
	},
}

// Fixtures is the target shape of the fixtures table.
var Fixtures = Table{
	Name: "fixtures",
	Columns: []Column{
		{Name: "id", Kind: Int},
		{Name: "event", Kind: Int},
		{Name: "team_h", Kind: Int},
		{Name: "team_a", Kind: Int},
		{Name: "team_h_score", Kind: Int},
		{Name: "team_a_score", Kind: Int},
		{Name: "kickoff_time", Kind: Timestamp},
		{Name: "finished", Kind: Bool},
		{Name: "started", Kind: Bool},
		{Name: "minutes", Kind: Int},
	},
	Exclude: []string{"stats"},
}

// Teams is the target shape of the teams table, fed from the bootstrap
// document's teams section. Persisting teams lets the read layer join
// real team names instead of synthesizing placeholders from foreign keys.
var Teams = Table{
	Name: "teams",
	Columns: []Column{
		{Name: "id", Kind: Int},
		{Name: "name", Kind: Raw},
		{Name: "short_name", Kind: Raw},
		{Name: "code", Kind: Int},
		{Name: "strength", Kind: Int},
	},
}

// EventsLive is the target shape of the live gameweek stats table, fed
// from the event-live document's elements array with each player's
// nested stats object flattened.
var EventsLive = Table{
	Name: "events_live",
	Columns: []Column{
		{Name: "id", Kind: Int},
		{Name: "event", Kind: Int},
		{Name: "stats.minutes", Kind: Int},
		{Name: "stats.total_points", Kind: Int},
		{Name: "stats.goals_scored", Kind: Int},
		{Name: "stats.assists", Kind: Int},
		{Name: "stats.bonus", Kind: Int},
		{Name: "stats.bps", Kind: Int},
	},
	Exclude: []string{"explain"},
}
