package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Events     *EventHandler
	Resources  *ResourceHandler
	Reports    *ReportHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Events != nil {
		mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Events.List(w, r)
			case http.MethodPost:
				cfg.Events.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/events/import", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Events.Import(w, r)
		})
		mux.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
			id, sub := splitIDPath(r.URL.Path, "/events/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithEventID(r.Context(), id))
			switch sub {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Events.Get(w, r)
				case http.MethodDelete:
					cfg.Events.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodDelete)
				}
			case "allocations":
				switch r.Method {
				case http.MethodGet:
					cfg.Events.ListAllocations(w, r)
				case http.MethodPost:
					cfg.Events.Allocate(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Resources != nil {
		mux.HandleFunc("/resources", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Resources.List(w, r)
			case http.MethodPost:
				cfg.Resources.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/resources/", func(w http.ResponseWriter, r *http.Request) {
			id, sub := splitIDPath(r.URL.Path, "/resources/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch sub {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Resources.Get(w, r)
				case http.MethodDelete:
					cfg.Resources.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodDelete)
				}
			case "calendar.ics":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Resources.Calendar(w, r)
			case "availability":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Resources.Availability(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Reports != nil {
		mux.HandleFunc("/reports/utilization", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Reports.Utilization(w, r)
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
