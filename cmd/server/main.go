// Command graphengine-server exposes graph creation, GRAPH.DELETE and
// GRAPH.QUERY/EXPLAIN over HTTP (there is no PROFILE route), generalizing the teacher's single hand-rolled /query mux
// handler + bespoke CORS middleware into a go-chi router with the
// go-chi/cors middleware the rest of the domain stack already reaches
// for, fronting a shared graphengine.Engine instead of a per-request
// freshly-loaded graph.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	graphengine "github.com/cyphercore/graphengine"
	"github.com/cyphercore/graphengine/internal/engerr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var qerr *engerr.QueryError
	status := http.StatusInternalServerError
	if errors.As(err, &qerr) {
		switch qerr.Kind {
		case engerr.KindParseError, engerr.KindInvalidQuery, engerr.KindTypeMismatch, engerr.KindDivByZero:
			status = http.StatusBadRequest
		case engerr.KindUnknownProperty, engerr.KindUnknownLabel, engerr.KindUnknownRelType:
			status = http.StatusUnprocessableEntity
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type queryRequest struct {
	Graph  string         `json:"graph"`
	Query  string         `json:"query"`
	Params map[string]any `json:"params"`
}

func main() {
	addr := flag.String("addr", ":8080", "address to listen on")
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	e, err := graphengine.New(*configPath)
	if err != nil {
		fmt.Printf("loading engine: %v\n", err)
		return
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	}))

	r.Post("/graphs/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		e.CreateGraph(name)
		writeJSON(w, http.StatusCreated, map[string]string{"graph": name})
	})

	r.Delete("/graphs/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		if err := e.DeleteGraph(name); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/graphs/{name}/query", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		var body queryRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if body.Query == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing field: query"})
			return
		}

		res, err := e.Query(req.Context(), name, body.Query, nil, graphengine.FormatterCompact)
		if err != nil {
			writeError(w, err)
			return
		}
		b, err := graphengine.MarshalResultJSON(res)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(b)
	})

	r.Post("/graphs/{name}/explain", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		var body queryRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		plan, err := e.Explain(req.Context(), name, body.Query, nil)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"plan": plan})
	})

	fmt.Printf("graphengine server listening on %s\n", *addr)
	if err := http.ListenAndServe(*addr, r); err != nil {
		fmt.Printf("server error: %v\n", err)
	}
}
