package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/starhunt/internal/hunt"
	"github.com/playperu/starhunt/internal/starhunt"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthStatus is one dependency's entry in the /healthz response.
type HealthStatus struct {
	Status string `json:"status"`
}

// HealthResponse maps dependency names to their status.
type HealthResponse map[string]HealthStatus

// StatusResponse acknowledges requests that return no resource.
type StatusResponse struct {
	Status string `json:"status"`
}

// decisionInput documents the path parameter next to the JSON body.
type decisionInput struct {
	ID       string            `path:"id"`
	Decision starhunt.Decision `json:"decision"`
}

type sectionInput struct {
	Section int `path:"section"`
}

type requestsQuery struct {
	Status starhunt.Status `query:"status"`
}

type streamQuery struct {
	Token string `query:"token"`
}

// newOperation and addOperation panic: the document is built once at
// startup and an operation dropped by the reflector must not go unnoticed.
func newOperation(r *openapi3.Reflector, method, path string) openapi.OperationContext {
	oc, err := r.NewOperationContext(method, path)
	if err != nil {
		panic(fmt.Sprintf("openapi: %s %s: %v", method, path, err))
	}
	return oc
}

func addOperation(r *openapi3.Reflector, oc openapi.OperationContext) {
	if err := r.AddOperation(oc); err != nil {
		panic(fmt.Sprintf("openapi: %v", err))
	}
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Starhunt API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the Starhunt puzzle hunt.")

	// GET /healthz
	getHealthz := newOperation(r, http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	addOperation(r, getHealthz)

	// POST /api/register
	postRegister := newOperation(r, http.MethodPost, "/api/register")
	postRegister.SetSummary("Register a team")
	postRegister.SetDescription("Creates a team profile. Does not log in.")
	postRegister.AddReqStructure(RegisterRequest{})
	postRegister.AddRespStructure(RegisterResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postRegister.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postRegister.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	addOperation(r, postRegister)

	// POST /api/login
	postLogin := newOperation(r, http.MethodPost, "/api/login")
	postLogin.SetSummary("Team login")
	postLogin.SetDescription("Checks the team PIN and returns a session token.")
	postLogin.AddReqStructure(LoginRequest{})
	postLogin.AddRespStructure(hunt.Login{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	addOperation(r, postLogin)

	// POST /api/logout
	postLogout := newOperation(r, http.MethodPost, "/api/logout")
	postLogout.SetSummary("Team logout")
	postLogout.SetDescription("Deletes the session named by the Bearer token.")
	postLogout.AddRespStructure(StatusResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	addOperation(r, postLogout)

	// POST /api/forgot-password
	postForgot := newOperation(r, http.MethodPost, "/api/forgot-password")
	postForgot.SetSummary("Forgot password")
	postForgot.SetDescription("Issues the one-time forgot-password warning. Without confirm it only checks eligibility.")
	postForgot.AddReqStructure(ForgotPasswordRequest{})
	postForgot.AddRespStructure(ForgotPasswordResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postForgot.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postForgot.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	addOperation(r, postForgot)

	// GET /api/config
	getConfig := newOperation(r, http.MethodGet, "/api/config")
	getConfig.SetSummary("Game config")
	getConfig.SetDescription("Returns the global section unlock switches.")
	getConfig.AddRespStructure(starhunt.GameConfig{}, openapi.WithHTTPStatus(http.StatusOK))
	addOperation(r, getConfig)

	// GET /api/game/state
	getState := newOperation(r, http.MethodGet, "/api/game/state")
	getState.SetSummary("Get game state")
	getState.SetDescription("Returns the team profile, config and section gates. Requires Bearer token.")
	getState.AddRespStructure(hunt.State{}, openapi.WithHTTPStatus(http.StatusOK))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	addOperation(r, getState)

	// POST /api/game/sections/{section}
	postSection := newOperation(r, http.MethodPost, "/api/game/sections/{section}")
	postSection.SetSummary("Select section")
	postSection.SetDescription("Enters a section if its gate is open and returns its riddles. Requires Bearer token.")
	postSection.AddReqStructure(sectionInput{})
	postSection.AddRespStructure(SectionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postSection.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	postSection.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	addOperation(r, postSection)

	// POST /api/game/answer
	postAnswer := newOperation(r, http.MethodPost, "/api/game/answer")
	postAnswer.SetSummary("Submit answer")
	postAnswer.SetDescription("Submits an answer for one riddle. Requires Bearer token.")
	postAnswer.AddReqStructure(AnswerRequest{})
	postAnswer.AddRespStructure(starhunt.Result{}, openapi.WithHTTPStatus(http.StatusOK))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	addOperation(r, postAnswer)

	// POST /api/game/pointing
	postPointing := newOperation(r, http.MethodPost, "/api/game/pointing")
	postPointing.SetSummary("Request pointing")
	postPointing.SetDescription("Nominates a solved section 1 star for telescope verification. Once per team.")
	postPointing.AddReqStructure(PointingRequest{})
	postPointing.AddRespStructure(PointingResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postPointing.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	addOperation(r, postPointing)

	// GET /api/events
	getEvents := newOperation(r, http.MethodGet, "/api/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of team, config and queue changes. Pass token as query parameter.")
	getEvents.AddReqStructure(streamQuery{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	addOperation(r, getEvents)

	// GET /api/events/ws
	getEventsWS := newOperation(r, http.MethodGet, "/api/events/ws")
	getEventsWS.SetSummary("WebSocket event stream")
	getEventsWS.SetDescription("Same feed as /api/events, one JSON event per WebSocket message.")
	getEventsWS.AddReqStructure(streamQuery{})
	getEventsWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("application/json"))
	addOperation(r, getEventsWS)

	// POST /api/admin/login
	postAdminLogin := newOperation(r, http.MethodPost, "/api/admin/login")
	postAdminLogin.SetSummary("Admin login")
	postAdminLogin.SetDescription("Authenticate with the admin PIN. Sets admin_session cookie.")
	postAdminLogin.AddReqStructure(AdminLoginRequest{})
	postAdminLogin.AddRespStructure(hunt.Login{}, openapi.WithHTTPStatus(http.StatusOK))
	postAdminLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	addOperation(r, postAdminLogin)

	// POST /api/admin/logout
	postAdminLogout := newOperation(r, http.MethodPost, "/api/admin/logout")
	postAdminLogout.SetSummary("Admin logout")
	postAdminLogout.SetDescription("Clears admin session and cookie.")
	postAdminLogout.AddRespStructure(StatusResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	addOperation(r, postAdminLogout)

	// GET /api/admin/me
	getMe := newOperation(r, http.MethodGet, "/api/admin/me")
	getMe.SetSummary("Current admin")
	getMe.SetDescription("Returns the currently authenticated admin. Requires admin_session cookie.")
	getMe.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	addOperation(r, getMe)

	// GET /api/admin/requests
	listRequests := newOperation(r, http.MethodGet, "/api/admin/requests")
	listRequests.SetSummary("List verification requests")
	listRequests.SetDescription("Returns the queue newest first. Optional status query parameter filters it.")
	listRequests.AddReqStructure(requestsQuery{})
	listRequests.AddRespStructure([]starhunt.VerificationRequest{}, openapi.WithHTTPStatus(http.StatusOK))
	listRequests.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	listRequests.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	addOperation(r, listRequests)

	// POST /api/admin/requests/{id}/decision
	postDecision := newOperation(r, http.MethodPost, "/api/admin/requests/{id}/decision")
	postDecision.SetSummary("Decide request")
	postDecision.SetDescription("Approves or rejects a pending request. Approval awards points to the team.")
	postDecision.AddReqStructure(decisionInput{})
	postDecision.AddRespStructure(hunt.Decided{}, openapi.WithHTTPStatus(http.StatusOK))
	postDecision.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postDecision.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	addOperation(r, postDecision)

	// GET /api/admin/teams
	listTeams := newOperation(r, http.MethodGet, "/api/admin/teams")
	listTeams.SetSummary("Leaderboard")
	listTeams.SetDescription("Returns player teams by points, highest first.")
	listTeams.AddRespStructure([]starhunt.TeamProfile{}, openapi.WithHTTPStatus(http.StatusOK))
	listTeams.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	addOperation(r, listTeams)

	// PUT /api/admin/config
	putConfig := newOperation(r, http.MethodPut, "/api/admin/config")
	putConfig.SetSummary("Update game config")
	putConfig.SetDescription("Sets the global section unlock switches.")
	putConfig.AddReqStructure(starhunt.GameConfig{})
	putConfig.AddRespStructure(starhunt.GameConfig{}, openapi.WithHTTPStatus(http.StatusOK))
	putConfig.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	addOperation(r, putConfig)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
