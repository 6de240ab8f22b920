package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"sigma/internal/domain"
	"sigma/internal/engine"
	"sigma/internal/store"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Sigma demo API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Sigma Demo API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerAgents(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerActions(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerTimeseries(group, cfg.Engine)
	registerDemo(group, cfg.Engine)
	registerDevAuth(group, cfg.Auth)
	registerOpenAPI(router, api, basePath)

	startWebhookNotifier(cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") || strings.Contains(lowered, "unknown") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerAgents(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-agents",
		Method:      http.MethodGet,
		Path:        "/agents",
		Summary:     "List agents with derived state",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []engine.AgentView `json:"body"`
	}, error) {
		return &struct {
			Body []engine.AgentView `json:"body"`
		}{Body: e.Agents()}, nil
	})
}

func registerEvents(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		AgentID           string   `query:"agent_id" enum:",heat,air,noise"`
		Status            []string `query:"status"`
		RequiresAttention *bool    `query:"requires_attention"`
	}) (*struct {
		Body eventList `json:"body"`
	}, error) {
		var filter *store.EventFilter
		if input.AgentID != "" || len(input.Status) > 0 || input.RequiresAttention != nil {
			filter = &store.EventFilter{
				AgentID:           domain.AgentID(input.AgentID),
				Status:            input.Status,
				RequiresAttention: input.RequiresAttention,
			}
		}
		return &struct {
			Body eventList `json:"body"`
		}{Body: eventList{Items: mapEvents(e.Events.List(filter))}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-event",
		Method:      http.MethodGet,
		Path:        "/events/{id}",
		Summary:     "Get event",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body EventResponse `json:"body"`
	}, error) {
		evt, ok := e.Events.Get(input.ID)
		if !ok {
			return nil, handleError(fmt.Errorf("event %d: %w", input.ID, store.ErrNotFound))
		}
		return &struct {
			Body EventResponse `json:"body"`
		}{Body: eventResponse(evt)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-event",
		Method:        http.MethodPost,
		Path:          "/events",
		Summary:       "Create event from an override definition",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateEventRequest `json:"body"`
	}) (*struct {
		Body EventResponse `json:"body"`
	}, error) {
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		if input.Body.Domain == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "domain is required", nil)
		}
		id := e.Control.NextEventID()
		if input.Body.ID != nil {
			id = *input.Body.ID
		}
		evt, err := e.Events.AddFromOverride(ctx, input.Body.override(id), e.Control.Stale())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EventResponse `json:"body"`
		}{Body: eventResponse(evt)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-event",
		Method:      http.MethodPatch,
		Path:        "/events/{id}",
		Summary:     "Patch event",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64             `path:"id"`
		Body domain.EventPatch `json:"body"`
	}) (*struct {
		Body EventResponse `json:"body"`
	}, error) {
		evt, err := e.Events.Update(ctx, input.ID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EventResponse `json:"body"`
		}{Body: eventResponse(evt)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-event",
		Method:      http.MethodPost,
		Path:        "/events/{id}/close",
		Summary:     "Close or resolve event",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64              `path:"id"`
		Body store.CloseRequest `json:"body"`
	}) (*struct {
		Body EventResponse `json:"body"`
	}, error) {
		evt, err := e.Events.Close(ctx, input.ID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EventResponse `json:"body"`
		}{Body: eventResponse(evt)}, nil
	})
}

func registerActions(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-actions",
		Method:      http.MethodGet,
		Path:        "/actions",
		Summary:     "List agent action log",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body actionList `json:"body"`
	}, error) {
		return &struct {
			Body actionList `json:"body"`
		}{Body: actionList{Items: e.Actions.List()}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-action",
		Method:        http.MethodPost,
		Path:          "/actions",
		Summary:       "Append an action log entry",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body AddActionRequest `json:"body"`
	}) (*struct {
		Body domain.ActionLogEntry `json:"body"`
	}, error) {
		if input.Body.AgentID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "agent_id is required", nil)
		}
		if input.Body.Action == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "action is required", nil)
		}
		entry := domain.ActionLogEntry{
			AgentID: input.Body.AgentID,
			Action:  input.Body.Action,
			Summary: input.Body.Summary,
			EventID: input.Body.EventID,
			Result:  input.Body.Result,
		}
		if input.Body.ID != nil {
			entry.ID = *input.Body.ID
		}
		if entry.Result == "" {
			entry.Result = domain.ResultSuccess
		}
		added, err := e.Actions.Add(ctx, entry)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ActionLogEntry `json:"body"`
		}{Body: added}, nil
	})
}

func registerTasks(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List generated tasks and decisions",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body taskList `json:"body"`
	}, error) {
		return &struct {
			Body taskList `json:"body"`
		}{Body: taskList{Items: e.Tasks()}}, nil
	})
}

func registerTimeseries(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-timeseries",
		Method:      http.MethodGet,
		Path:        "/agents/{agent_id}/timeseries",
		Summary:     "Hourly metric series for one agent",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		AgentID string `path:"agent_id" enum:"heat,air,noise"`
	}) (*struct {
		Body seriesResponse `json:"body"`
	}, error) {
		points, ok := e.TimeseriesFor(domain.AgentID(input.AgentID))
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "unknown agent", nil)
		}
		return &struct {
			Body seriesResponse `json:"body"`
		}{Body: seriesResponse{AgentID: domain.AgentID(input.AgentID), Points: points}}, nil
	})
}

func registerDemo(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "inject-critical-event",
		Method:        http.MethodPost,
		Path:          "/demo/critical-event",
		Summary:       "Inject a critical heating event",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body EventResponse `json:"body"`
	}, error) {
		evt, err := e.InjectCritical(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EventResponse `json:"body"`
		}{Body: eventResponse(evt)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-agent-stale",
		Method:      http.MethodPut,
		Path:        "/demo/agents/{agent_id}/stale",
		Summary:     "Simulate stale data for a domain",
	}, func(ctx context.Context, input *struct {
		AgentID string         `path:"agent_id" enum:"heat,air,noise"`
		Body    SetFlagRequest `json:"body"`
	}) (*struct {
		Body engine.AgentView `json:"body"`
	}, error) {
		e.Control.SetStale(domain.AgentID(input.AgentID), input.Body.Value)
		return agentViewResponse(e, domain.AgentID(input.AgentID))
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-agent-paused",
		Method:      http.MethodPut,
		Path:        "/demo/agents/{agent_id}/paused",
		Summary:     "Pause or resume a domain",
	}, func(ctx context.Context, input *struct {
		AgentID string         `path:"agent_id" enum:"heat,air,noise"`
		Body    SetFlagRequest `json:"body"`
	}) (*struct {
		Body engine.AgentView `json:"body"`
	}, error) {
		e.Control.SetPaused(domain.AgentID(input.AgentID), input.Body.Value)
		return agentViewResponse(e, domain.AgentID(input.AgentID))
	})

	huma.Register(api, huma.Operation{
		OperationID: "reset-demo",
		Method:      http.MethodPost,
		Path:        "/reset",
		Summary:     "Reseed demo state",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if err := e.Reset(ctx); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "reseeded"}}, nil
	})
}

func agentViewResponse(e *engine.Engine, id domain.AgentID) (*struct {
	Body engine.AgentView `json:"body"`
}, error) {
	for _, view := range e.Agents() {
		if view.ID == id {
			return &struct {
				Body engine.AgentView `json:"body"`
			}{Body: view}, nil
		}
	}
	return nil, newAPIError(http.StatusNotFound, "not_found", "unknown agent", nil)
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Sigma Demo API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}
