package challenge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/projtrack/tracker/pkg/flash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/challenges", h.List).Methods("GET")
	router.HandleFunc("/challenges/new", h.Create).Methods("POST")
	router.HandleFunc("/challenges/{id}/edit", h.Get).Methods("GET")
	router.HandleFunc("/challenges/{id}/edit", h.Update).Methods("POST")
	router.HandleFunc("/challenges/{id}/delete", h.Delete).Methods("POST")
	router.HandleFunc("/challenges/upload", h.Upload).Methods("POST")
	router.HandleFunc("/challenges/download", h.Download).Methods("GET")
	return router
}

func postForm(router http.Handler, target string, values url.Values) *http.Response {
	req := httptest.NewRequest("POST", target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr.Result()
}

func TestHandler_Create(t *testing.T) {
	tests := []struct {
		name     string
		values   url.Values
		expected flash.Message
		stored   int
	}{
		{
			name:     "adds a challenge",
			values:   url.Values{"challenge": {"Late funds"}, "action": {"Escalate"}},
			expected: flash.Message{Category: flash.Success, Text: "Challenge added."},
			stored:   1,
		},
		{
			name:     "requires an action",
			values:   url.Values{"challenge": {"Late funds"}, "action": {"  "}},
			expected: flash.Message{Category: flash.Error, Text: "Please provide both a challenge and an action."},
			stored:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			teardown := setup(t)
			defer teardown()
			router := newRouter(NewHandler(service, 1<<20))

			// when
			resp := postForm(router, "/challenges/new", tt.values)

			// then
			assert.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, []flash.Message{tt.expected}, flash.Read(resp))
			all, _ := service.List(ctx)
			assert.Len(t, all, tt.stored)
		})
	}
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	teardown := setup(t)
	defer teardown()
	router := newRouter(NewHandler(service, 1<<20))
	created, _ := service.Create(ctx, Challenge{Challenge: "Late funds", Action: "Escalate"})
	target := fmt.Sprintf("/challenges/%d", created.Id)

	// when
	updated := postForm(router, target+"/edit", url.Values{
		"challenge": {"Late funds"}, "action": {"Escalate"}, "status": {"canceled"},
	})
	deleted := postForm(router, target+"/delete", nil)
	missing := postForm(router, target+"/delete", nil)

	// then
	assert.Equal(t, []flash.Message{{Category: flash.Success, Text: "Challenge updated."}}, flash.Read(updated))
	assert.Equal(t, []flash.Message{{Category: flash.Info, Text: "Challenge deleted."}}, flash.Read(deleted))
	assert.Equal(t, []flash.Message{{Category: flash.Error, Text: "Challenge not found."}}, flash.Read(missing))
}

func TestHandler_List(t *testing.T) {
	teardown := setup(t)
	defer teardown()
	router := newRouter(NewHandler(service, 1<<20))
	created, _ := service.Create(ctx, Challenge{Challenge: "Late funds", Action: "Escalate"})

	// when
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/challenges", nil))

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Challenges []ChallengeDTO `json:"challenges"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Len(t, body.Challenges, 1)
	assert.Equal(t, "pending", body.Challenges[0].Status)
	assert.Equal(t, fmt.Sprintf("/challenges/%d/edit", created.Id), body.Challenges[0].EditURL)
}

func TestHandler_Upload(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected flash.Message
	}{
		{
			name:     "imports challenges",
			content:  "challenge,action\nLate funds,Escalate\n",
			expected: flash.Message{Category: flash.Success, Text: "Challenges import complete. Created 1, updated 0."},
		},
		{
			name:     "warns when nothing is usable",
			content:  "challenge,action\nLate funds,\n",
			expected: flash.Message{Category: flash.Warning, Text: "No valid challenge rows found in the uploaded file."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			teardown := setup(t)
			defer teardown()
			router := newRouter(NewHandler(service, 1<<20))

			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			part, _ := mw.CreateFormFile("file", "challenges.csv")
			_, _ = part.Write([]byte(tt.content))
			_ = mw.Close()
			req := httptest.NewRequest("POST", "/challenges/upload", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())

			// when
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			// then
			assert.Equal(t, http.StatusFound, rr.Code)
			assert.Equal(t, []flash.Message{tt.expected}, flash.Read(rr.Result()))
		})
	}
}

func TestHandler_Download(t *testing.T) {
	teardown := setup(t)
	defer teardown()
	router := newRouter(NewHandler(service, 1<<20))
	_, _ = service.Create(ctx, Challenge{Challenge: "Late funds", Action: "Escalate"})

	// when
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/challenges/download", nil))

	// then
	assert.Equal(t, "attachment; filename=challenges.csv", rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "challenge,action,responsible,timeline,status\nLate funds,Escalate,,,pending\n", rr.Body.String())
}

func TestHandler_Upload_TooLarge(t *testing.T) {
	teardown := setup(t)
	defer teardown()
	router := newRouter(NewHandler(service, 256))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "challenges.csv")
	_, _ = part.Write([]byte("challenge,action\n" + strings.Repeat("Late funds,Escalate\n", 50)))
	_ = mw.Close()
	req := httptest.NewRequest("POST", "/challenges/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	// when
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// then
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, []flash.Message{{Category: flash.Error, Text: "The uploaded file is too large."}}, flash.Read(rr.Result()))
	all, _ := service.List(ctx)
	assert.Empty(t, all)
}
