package activity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/projtrack/tracker/internal/ingest"
	"github.com/projtrack/tracker/internal/rest"
	"github.com/projtrack/tracker/pkg/flash"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type ActivityDTO struct {
	Id                 int             `json:"id"`
	Code               string          `json:"code"`
	InitialActivity    string          `json:"initial_activity"`
	ProposedActivity   string          `json:"proposed_activity"`
	ImplementingEntity string          `json:"implementing_entity"`
	DeliveryPartner    string          `json:"delivery_partner"`
	ResultsArea        string          `json:"results_area"`
	Category           string          `json:"category"`
	BudgetYear1        decimal.Decimal `json:"budget_year1"`
	BudgetYear2        decimal.Decimal `json:"budget_year2"`
	BudgetYear3        decimal.Decimal `json:"budget_year3"`
	BudgetTotal        decimal.Decimal `json:"budget_total"`
	BudgetUsed         decimal.Decimal `json:"budget_used"`
	Status             string          `json:"status"`
	Progress           int             `json:"progress"`
	ExecutionPercent   int             `json:"exec_pct"`
	Notes              string          `json:"notes"`
	EditURL            string          `json:"edit_url"`
	DeleteURL          string          `json:"delete_url"`
}

type SummaryDTO struct {
	TotalActivities int             `json:"total_activities"`
	TotalBudget     decimal.Decimal `json:"total_budget"`
	TotalUsed       decimal.Decimal `json:"total_used"`
	AvgProgress     float64         `json:"avg_progress"`
}

type StatusRowDTO struct {
	Status string          `json:"status"`
	Count  int             `json:"count"`
	Budget decimal.Decimal `json:"budget"`
}

type DashboardDTO struct {
	Filter       Filter          `json:"filter"`
	Summary      SummaryDTO      `json:"summary"`
	StatusRows   []StatusRowDTO  `json:"status_rows"`
	Activities   []ActivityDTO   `json:"activities"`
	Entities     []string        `json:"entities"`
	Categories   []string        `json:"categories"`
	ResultsAreas []string        `json:"results_areas"`
	Challenges   any             `json:"challenges"`
	Flashes      []flash.Message `json:"flashes"`
}

// ActivityForm is the create and edit form. Numbers stay text until
// validated so blank inputs mean zero.
type ActivityForm struct {
	Code               string `form:"code"`
	InitialActivity    string `form:"initial_activity"`
	ProposedActivity   string `form:"proposed_activity"`
	ImplementingEntity string `form:"implementing_entity"`
	DeliveryPartner    string `form:"delivery_partner"`
	ResultsArea        string `form:"results_area"`
	Category           string `form:"category"`
	BudgetYear1        string `form:"budget_year1" validate:"omitempty,numeric"`
	BudgetYear2        string `form:"budget_year2" validate:"omitempty,numeric"`
	BudgetYear3        string `form:"budget_year3" validate:"omitempty,numeric"`
	BudgetTotal        string `form:"budget_total" validate:"omitempty,numeric"`
	BudgetUsed         string `form:"budget_used" validate:"omitempty,numeric"`
	Status             string `form:"status"`
	Progress           string `form:"progress" validate:"omitempty,numeric"`
	Notes              string `form:"notes"`
}

func (f *ActivityForm) trim() {
	for _, s := range []*string{&f.Code, &f.InitialActivity, &f.ProposedActivity, &f.ImplementingEntity,
		&f.DeliveryPartner, &f.ResultsArea, &f.Category, &f.BudgetYear1, &f.BudgetYear2, &f.BudgetYear3,
		&f.BudgetTotal, &f.BudgetUsed, &f.Status, &f.Progress, &f.Notes} {
		*s = strings.TrimSpace(*s)
	}
}

func (f ActivityForm) toActivity() Activity {
	total, _ := ingest.ParseDecimal(f.BudgetTotal)
	used, _ := ingest.ParseDecimal(f.BudgetUsed)
	y1, _ := ingest.ParseDecimal(f.BudgetYear1)
	y2, _ := ingest.ParseDecimal(f.BudgetYear2)
	y3, _ := ingest.ParseDecimal(f.BudgetYear3)
	progress, _ := ingest.ParseDecimal(f.Progress)
	return Activity{
		Code:               f.Code,
		InitialActivity:    f.InitialActivity,
		ProposedActivity:   f.ProposedActivity,
		ImplementingEntity: f.ImplementingEntity,
		DeliveryPartner:    f.DeliveryPartner,
		ResultsArea:        f.ResultsArea,
		Category:           f.Category,
		BudgetYear1:        y1,
		BudgetYear2:        y2,
		BudgetYear3:        y3,
		BudgetTotal:        total,
		BudgetUsed:         used,
		Status:             f.Status,
		Progress:           ingest.ClampPercent(progress),
		Notes:              f.Notes,
	}
}

// ChallengesProvider supplies the challenge table shown on the dashboard.
type ChallengesProvider func(ctx context.Context) (any, error)

type Handler struct {
	service    Service
	challenges ChallengesProvider
	maxUpload  int64
}

func NewHandler(service Service, challenges ChallengesProvider, maxUpload int64) *Handler {
	return &Handler{service: service, challenges: challenges, maxUpload: maxUpload}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	log.Debug("Rendering dashboard")

	var filter Filter
	if err := rest.DecodeQuery(r, &filter); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid filter")
		return
	}

	dashboard, err := h.service.Dashboard(r.Context(), filter)
	if err != nil {
		log.Errorf("failed to build dashboard: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var challenges any = []any{}
	if h.challenges != nil {
		challenges, err = h.challenges(r.Context())
		if err != nil {
			log.Errorf("failed to load challenges: %v", err)
			challenges = []any{}
		}
	}

	dto := dashboardToDTO(dashboard)
	dto.Filter = filter
	dto.Challenges = challenges
	dto.Flashes = flash.Pop(w, r)
	rest.WriteJSON(w, http.StatusOK, dto)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating activity")

	form, ok := h.decodeForm(w, r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if _, err := h.service.Create(r.Context(), form.toActivity()); err != nil {
		flash.Add(w, r, flash.Error, "An error occurred while creating the activity.")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	flash.Add(w, r, flash.Success, "Activity created successfully")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r)
	if !ok {
		return
	}

	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			flash.Add(w, r, flash.Error, "Activity not found")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		rest.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rest.WriteJSON(w, http.StatusOK, activityToDTO(a))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	log.Debugf("Updating activity %d", id)

	editURL := fmt.Sprintf("/activity/%d/edit", id)
	form, ok := h.decodeForm(w, r)
	if !ok {
		http.Redirect(w, r, editURL, http.StatusFound)
		return
	}

	a := form.toActivity()
	a.Id = id
	if _, err := h.service.Update(r.Context(), a); err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			flash.Add(w, r, flash.Error, "Activity not found")
		} else {
			flash.Add(w, r, flash.Error, "An error occurred while updating the activity.")
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	flash.Add(w, r, flash.Success, "Activity updated successfully")
	http.Redirect(w, r, rest.Next(r, "/"), http.StatusFound)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r)
	if !ok {
		return
	}

	err := h.service.Delete(r.Context(), id)
	switch {
	case errors.Is(err, ErrActivityNotFound):
		flash.Add(w, r, flash.Error, "Activity not found.")
	case err != nil:
		log.Errorf("failed to delete activity %d: %v", id, err)
		flash.Add(w, r, flash.Error, "An error occurred while deleting the activity.")
	default:
		flash.Add(w, r, flash.Info, "Activity deleted")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.DeleteAll(r.Context()); err != nil {
		flash.Add(w, r, flash.Error, "An error occurred while deleting activities.")
	} else {
		flash.Add(w, r, flash.Info, "All activities have been deleted.")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	log.Debug("Uploading activities")

	file, header, err := rest.FormFile(w, r, "file", h.maxUpload)
	if err != nil {
		log.Debugf("failed to read upload: %v", err)
		if errors.Is(err, rest.ErrUploadTooLarge) {
			flash.Add(w, r, flash.Error, "The uploaded file is too large.")
		} else {
			flash.Add(w, r, flash.Error, "No file selected.")
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	defer file.Close()

	if !ingest.Supported(header.Filename) {
		flash.Add(w, r, flash.Error, "Please upload a spreadsheet file (.xlsx or .csv).")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	report, err := h.service.Import(r.Context(), file, header.Filename)
	switch {
	case errors.Is(err, ingest.ErrEmptyUpload):
		flash.Add(w, r, flash.Error, "The uploaded file is empty.")
	case err != nil:
		flash.Add(w, r, flash.Error, fmt.Sprintf("Error reading Excel file: %v", err))
	case report.Empty():
		flash.Add(w, r, flash.Info, "No valid rows found in Excel file.")
	default:
		flash.Add(w, r, flash.Success, fmt.Sprintf("Imported %d new activities, updated %d existing.", report.Created, report.Updated))
		if adjusted := report.Count(ingest.InvalidNumber, ingest.ClampedNumber, ingest.CoercedValue); report.Skipped > 0 || adjusted > 0 {
			flash.Add(w, r, flash.Info, fmt.Sprintf("%d rows skipped, %d cells adjusted during import.", report.Skipped, adjusted))
		}
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Status:             r.URL.Query().Get("status"),
		ImplementingEntity: r.URL.Query().Get("implementing_entity"),
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=activities.csv")
	if err := h.service.Export(r.Context(), filter, w); err != nil {
		log.Errorf("failed to export activities: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request) (ActivityForm, bool) {
	var form ActivityForm
	if err := rest.DecodeForm(r, &form); err != nil {
		flash.Add(w, r, flash.Error, "Invalid form submission.")
		return ActivityForm{}, false
	}
	form.trim()
	if messages, ok := rest.Check(&form); !ok {
		for _, m := range messages {
			flash.Add(w, r, flash.Error, m)
		}
		return ActivityForm{}, false
	}
	return form, true
}

func pathId(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid activity id")
		return 0, false
	}
	return id, true
}

func activityToDTO(a Activity) ActivityDTO {
	return ActivityDTO{
		Id:                 a.Id,
		Code:               a.Code,
		InitialActivity:    a.InitialActivity,
		ProposedActivity:   a.ProposedActivity,
		ImplementingEntity: a.ImplementingEntity,
		DeliveryPartner:    a.DeliveryPartner,
		ResultsArea:        a.ResultsArea,
		Category:           a.Category,
		BudgetYear1:        a.BudgetYear1,
		BudgetYear2:        a.BudgetYear2,
		BudgetYear3:        a.BudgetYear3,
		BudgetTotal:        a.BudgetTotal,
		BudgetUsed:         a.BudgetUsed,
		Status:             a.Status,
		Progress:           a.Progress,
		ExecutionPercent:   a.ExecutionPercent(),
		Notes:              a.Notes,
		EditURL:            fmt.Sprintf("/activity/%d/edit", a.Id),
		DeleteURL:          fmt.Sprintf("/activity/%d/delete", a.Id),
	}
}

func dashboardToDTO(d Dashboard) DashboardDTO {
	dto := DashboardDTO{
		Summary: SummaryDTO{
			TotalActivities: d.Summary.TotalActivities,
			TotalBudget:     d.Summary.TotalBudget,
			TotalUsed:       d.Summary.TotalUsed,
			AvgProgress:     d.Summary.AvgProgress,
		},
		StatusRows:   make([]StatusRowDTO, 0, len(d.StatusRows)),
		Activities:   make([]ActivityDTO, 0, len(d.Activities)),
		Entities:     d.Entities,
		Categories:   d.Categories,
		ResultsAreas: d.ResultsAreas,
	}
	for _, s := range d.StatusRows {
		dto.StatusRows = append(dto.StatusRows, StatusRowDTO{Status: s.Status, Count: s.Count, Budget: s.Budget})
	}
	for _, a := range d.Activities {
		dto.Activities = append(dto.Activities, activityToDTO(a))
	}
	return dto
}
