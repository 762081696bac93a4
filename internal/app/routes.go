package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers all endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {
	guard := NewGuard(deps.UserService)

	r.HandleFunc("/test", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("App is working!"))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Activities
	activities := deps.ActivityHandler
	r.HandleFunc("/", guard.Login(activities.Index)).Methods("GET")
	r.HandleFunc("/activity/new", guard.Admin(activities.Create)).Methods("POST")
	r.HandleFunc("/activity/{id:[0-9]+}/edit", guard.Admin(activities.Get)).Methods("GET")
	r.HandleFunc("/activity/{id:[0-9]+}/edit", guard.Admin(activities.Update)).Methods("POST")
	r.HandleFunc("/activity/{id:[0-9]+}/delete",
		guard.SuperAdmin("Only the super administrator can delete activities.", activities.Delete)).Methods("POST")
	r.HandleFunc("/activities/delete_all",
		guard.SuperAdmin("Only the super administrator can delete all activities.", activities.DeleteAll)).Methods("POST")
	r.HandleFunc("/upload", guard.Admin(activities.Upload)).Methods("POST")
	r.HandleFunc("/download", guard.Login(activities.Download)).Methods("GET")

	// Challenges
	challenges := deps.ChallengeHandler
	r.HandleFunc("/challenges", guard.Login(challenges.List)).Methods("GET")
	r.HandleFunc("/challenges/new", guard.Admin(challenges.Create)).Methods("POST")
	r.HandleFunc("/challenges/{id:[0-9]+}/edit", guard.Admin(challenges.Get)).Methods("GET")
	r.HandleFunc("/challenges/{id:[0-9]+}/edit", guard.Admin(challenges.Update)).Methods("POST")
	r.HandleFunc("/challenges/{id:[0-9]+}/delete",
		guard.SuperAdmin("Only the super administrator can delete challenges.", challenges.Delete)).Methods("POST")
	r.HandleFunc("/challenges/upload", guard.Admin(challenges.Upload)).Methods("POST")
	r.HandleFunc("/challenges/download", guard.Login(challenges.Download)).Methods("GET")

	// Accounts
	users := deps.UserHandler
	r.HandleFunc("/register", users.RegisterPage).Methods("GET")
	r.HandleFunc("/register", users.Register).Methods("POST")
	r.HandleFunc("/login", users.LoginPage).Methods("GET")
	r.HandleFunc("/login", users.Login).Methods("POST")
	r.HandleFunc("/logout", users.Logout).Methods("GET")
	r.HandleFunc("/resend-confirmation", users.ResendPage).Methods("GET")
	r.HandleFunc("/resend-confirmation", users.ResendConfirmation).Methods("POST")
	r.HandleFunc("/confirm/{token}", users.Confirm).Methods("GET")
	r.HandleFunc("/admin/users", guard.Admin(users.ListUsers)).Methods("GET")
	r.HandleFunc("/admin/users", guard.Admin(users.ChangeRole)).Methods("POST")
}
