package viewer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gocoex/adapters/report"
	"gocoex/domain/core"
	"gocoex/domain/run"
	apperrors "gocoex/internal/errors"
)

// reportPage wraps the rendered report body in a minimal standalone document
const reportPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; text-align: left; }
th { background: #f2f2f2; }
code { background: #f6f6f6; padding: 0.1rem 0.3rem; }
</style>
</head>
<body>
%s
</body>
</html>
`

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleListRuns returns persisted runs as JSON, newest first
func (a *App) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || offset < 0 {
		http.Error(w, "invalid paging parameters", http.StatusBadRequest)
		return
	}

	runs, err := a.runs.List(r.Context(), limit, offset)
	if err != nil {
		a.logger.Error("list runs failed: %v", err)
		http.Error(w, "failed to load runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun returns a single run with its pair summaries
func (a *App) handleGetRun(w http.ResponseWriter, r *http.Request) {
	ar, ok := a.loadRun(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ar)
}

// handleRunReport renders the run report. The default is a standalone HTML
// page; ?format=markdown returns the raw markdown instead.
func (a *App) handleRunReport(w http.ResponseWriter, r *http.Request) {
	ar, ok := a.loadRun(w, r)
	if !ok {
		return
	}

	md := report.BuildMarkdown(ar)

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, md)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, reportPage, "Analysis Run "+string(ar.ID), report.RenderHTML(md))
}

func (a *App) loadRun(w http.ResponseWriter, r *http.Request) (*run.AnalysisRun, bool) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	ar, err := a.runs.GetByID(r.Context(), id)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) || core.IsNotFoundError(err) {
			http.Error(w, "run not found", http.StatusNotFound)
		} else {
			a.logger.Error("load run %s failed: %v", id, err)
			http.Error(w, "failed to load run", http.StatusInternalServerError)
		}
		return nil, false
	}
	return ar, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return value
}
