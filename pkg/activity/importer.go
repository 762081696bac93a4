package activity

import "github.com/projtrack/tracker/internal/ingest"

// importFields lists the accepted headers per field. The snake_case export
// header is always among them so exported files import cleanly.
var importFields = []ingest.Field{
	{Name: "code", Headers: []string{"code", "code_new_improved_noch"}},
	{Name: "initial_activity", Headers: []string{"Initial activities", "Initial Activity", "initial_activity"}},
	{Name: "proposed_activity", Headers: []string{"New Proposed Project Activity", "Proposed Activity", "proposed_activity"}},
	{Name: "implementing_entity", Headers: []string{"IE in charge of impl", "Implementing Entity", "implementing_entity"}},
	{Name: "delivery_partner", Headers: []string{"Delivery partner", "delivery_partner"}},
	{Name: "results_area", Headers: []string{"results_area", "Results Area"}},
	{Name: "category", Headers: []string{"sr_category", "Category"}},
	{Name: "budget_year1", Headers: []string{"Sum of adjusted_bdg_year1", "Budget Y1", "budget_year1"}},
	{Name: "budget_year2", Headers: []string{"Sum of adjusted_bdg_year2", "Budget Y2", "budget_year2"}},
	{Name: "budget_year3", Headers: []string{"Sum of adjusted_bdg_year3", "Budget Y3", "budget_year3"}},
	{Name: "budget_total", Headers: []string{"Sum of TOTAL", "Total Budget", "budget_total"}},
	{Name: "budget_used", Headers: []string{"Budget used", "budget_used"}},
	{Name: "status", Headers: []string{"status"}},
	{Name: "progress", Headers: []string{"progress"}},
	{Name: "notes", Headers: []string{"Notes", "Note", "Comments"}},
}

var pipeline = ingest.Pipeline[Activity, string]{
	Fields: importFields,
	Map:    fromRow,
	Policy: ingest.Policy[Activity, string]{
		Key: func(a Activity) (string, bool) {
			return a.Code, a.Code != ""
		},
		Merge: func(existing, incoming Activity) Activity {
			incoming.Id = existing.Id
			incoming.Code = existing.Code
			return incoming
		},
	},
}

// fromRow builds an activity from a sheet row. Rows without a code and
// without either activity description are skipped.
func fromRow(v ingest.Values) (Activity, bool) {
	a := Activity{
		Code:               v.Text("code"),
		InitialActivity:    v.Text("initial_activity"),
		ProposedActivity:   v.Text("proposed_activity"),
		ImplementingEntity: v.Text("implementing_entity"),
		DeliveryPartner:    v.Text("delivery_partner"),
		ResultsArea:        v.Text("results_area"),
		Category:           v.Text("category"),
		Notes:              v.Text("notes"),
	}
	if a.Code == "" && a.InitialActivity == "" && a.ProposedActivity == "" {
		return Activity{}, false
	}

	a.BudgetYear1 = v.Decimal("budget_year1")
	a.BudgetYear2 = v.Decimal("budget_year2")
	a.BudgetYear3 = v.Decimal("budget_year3")
	a.BudgetTotal = v.Decimal("budget_total")
	a.BudgetUsed = v.Decimal("budget_used")
	a.Status = v.Text("status")
	if a.Status == "" {
		a.Status = DefaultStatus
	}
	a.Progress = v.Percent("progress", 0)
	return a, true
}
