package activity

import (
	"io"
	"strconv"

	"github.com/projtrack/tracker/internal/csvexport"
)

// ExportHeader is the fixed column order of activities.csv. Every name is
// also an accepted import header.
var ExportHeader = []string{
	"code",
	"initial_activity",
	"proposed_activity",
	"implementing_entity",
	"delivery_partner",
	"results_area",
	"category",
	"budget_year1",
	"budget_year2",
	"budget_year3",
	"budget_total",
	"budget_used",
	"status",
	"progress",
	"notes",
}

func WriteCSV(w io.Writer, activities []Activity) error {
	cw, err := csvexport.NewWriter(w, ExportHeader...)
	if err != nil {
		return err
	}
	for _, a := range activities {
		err := cw.Write(
			a.Code,
			a.InitialActivity,
			a.ProposedActivity,
			a.ImplementingEntity,
			a.DeliveryPartner,
			a.ResultsArea,
			a.Category,
			a.BudgetYear1.String(),
			a.BudgetYear2.String(),
			a.BudgetYear3.String(),
			a.BudgetTotal.String(),
			a.BudgetUsed.String(),
			a.Status,
			strconv.Itoa(a.Progress),
			a.Notes,
		)
		if err != nil {
			return err
		}
	}
	return cw.Close()
}
