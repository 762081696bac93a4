package challenge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/projtrack/tracker/internal/ingest"
	"github.com/projtrack/tracker/internal/rest"
	"github.com/projtrack/tracker/pkg/flash"
	log "github.com/sirupsen/logrus"
)

type ChallengeDTO struct {
	Id          int    `json:"id"`
	Challenge   string `json:"challenge"`
	Action      string `json:"action"`
	Responsible string `json:"responsible"`
	Timeline    string `json:"timeline"`
	Status      string `json:"status"`
	EditURL     string `json:"edit_url"`
	DeleteURL   string `json:"delete_url"`
}

type ChallengeForm struct {
	Challenge   string `form:"challenge"`
	Action      string `form:"action"`
	Responsible string `form:"responsible"`
	Timeline    string `form:"timeline"`
	Status      string `form:"status"`
}

type Handler struct {
	service   Service
	maxUpload int64
}

func NewHandler(service Service, maxUpload int64) *Handler {
	return &Handler{service: service, maxUpload: maxUpload}
}

// Table lists the challenges as they appear on the dashboard.
func (h *Handler) Table(ctx context.Context) (any, error) {
	challenges, err := h.service.List(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]ChallengeDTO, 0, len(challenges))
	for _, c := range challenges {
		dtos = append(dtos, challengeToDTO(c))
	}
	return dtos, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing challenges")
	table, err := h.Table(r.Context())
	if err != nil {
		rest.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{
		"challenges": table,
		"flashes":    flash.Pop(w, r),
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating challenge")
	c, ok := h.decodeForm(w, r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	_, err := h.service.Create(r.Context(), c)
	switch {
	case errors.Is(err, ErrChallengeRequired):
		flash.Add(w, r, flash.Error, "Please provide both a challenge and an action.")
	case err != nil:
		flash.Add(w, r, flash.Error, "An error occurred while adding the challenge.")
	default:
		flash.Add(w, r, flash.Success, "Challenge added.")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrChallengeNotFound) {
			flash.Add(w, r, flash.Error, "Challenge not found.")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		rest.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rest.WriteJSON(w, http.StatusOK, challengeToDTO(c))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	log.Debugf("Updating challenge %d", id)

	c, ok := h.decodeForm(w, r)
	if !ok {
		http.Redirect(w, r, fmt.Sprintf("/challenges/%d/edit", id), http.StatusFound)
		return
	}
	c.Id = id

	_, err := h.service.Update(r.Context(), c)
	switch {
	case errors.Is(err, ErrChallengeRequired):
		flash.Add(w, r, flash.Error, "Please provide both a challenge and an action.")
		http.Redirect(w, r, fmt.Sprintf("/challenges/%d/edit", id), http.StatusFound)
		return
	case errors.Is(err, ErrChallengeNotFound):
		flash.Add(w, r, flash.Error, "Challenge not found.")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	case err != nil:
		flash.Add(w, r, flash.Error, "An error occurred while updating the challenge.")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	flash.Add(w, r, flash.Success, "Challenge updated.")
	http.Redirect(w, r, rest.Next(r, "/"), http.StatusFound)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	err := h.service.Delete(r.Context(), id)
	switch {
	case errors.Is(err, ErrChallengeNotFound):
		flash.Add(w, r, flash.Error, "Challenge not found.")
	case err != nil:
		log.Errorf("failed to delete challenge %d: %v", id, err)
		flash.Add(w, r, flash.Error, "An error occurred while deleting the challenge.")
	default:
		flash.Add(w, r, flash.Info, "Challenge deleted.")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	log.Debug("Uploading challenges")

	file, header, err := rest.FormFile(w, r, "file", h.maxUpload)
	if err != nil {
		log.Debugf("failed to read upload: %v", err)
		if errors.Is(err, rest.ErrUploadTooLarge) {
			flash.Add(w, r, flash.Error, "The uploaded file is too large.")
		} else {
			flash.Add(w, r, flash.Error, "No file selected for challenges upload.")
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
		flash.Add(w, r, flash.Error, fmt.Sprintf("Error reading challenges file: %v", err))
	case report.Empty():
		flash.Add(w, r, flash.Warning, "No valid challenge rows found in the uploaded file.")
	default:
		flash.Add(w, r, flash.Success, fmt.Sprintf("Challenges import complete. Created %d, updated %d.", report.Created, report.Updated))
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=challenges.csv")
	if err := h.service.Export(r.Context(), w); err != nil {
		log.Errorf("failed to export challenges: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request) (Challenge, bool) {
	var form ChallengeForm
	if err := rest.DecodeForm(r, &form); err != nil {
		flash.Add(w, r, flash.Error, "Invalid form submission.")
		return Challenge{}, false
	}
	if messages, ok := rest.Check(&form); !ok {
		for _, m := range messages {
			flash.Add(w, r, flash.Error, m)
		}
		return Challenge{}, false
	}
	return Challenge{
		Challenge:   form.Challenge,
		Action:      form.Action,
		Responsible: form.Responsible,
		Timeline:    form.Timeline,
		Status:      Status(form.Status),
	}, true
}

func pathId(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid challenge id")
		return 0, false
	}
	return id, true
}

func challengeToDTO(c Challenge) ChallengeDTO {
	return ChallengeDTO{
		Id:          c.Id,
		Challenge:   c.Challenge,
		Action:      c.Action,
		Responsible: c.Responsible,
		Timeline:    c.Timeline,
		Status:      string(c.Status),
		EditURL:     fmt.Sprintf("/challenges/%d/edit", c.Id),
		DeleteURL:   fmt.Sprintf("/challenges/%d/delete", c.Id),
	}
}
