package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/netinventory/internal/core"
	"github.com/JonMunkholm/netinventory/internal/importer"
	"github.com/JonMunkholm/netinventory/internal/logging"
)

type healthResponse struct {
	Status        string `json:"status"`
	ImportRunning bool   `json:"import_running"`
}

// pinger is implemented by stores backed by a connection.
type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			respondError(w, r, err, http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		ImportRunning: s.runner.Limiter().ActiveCount() > 0,
	})
}

// handleStartImport runs an import synchronously and returns its result.
//
// Query parameters:
//   - reset=true clears branches, contacts and ATMs first
//   - phase=<name> restricts the run; repeat or comma-separate for several
//
// A run already in flight answers 409. The run is detached from the request
// context so a dropped client does not roll back a nearly finished import;
// it is bounded by IMPORT_TIMEOUT instead.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	opts, err := parseRunOptions(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	logger := logging.WithFields(r.Context(), requestFields(r)...)
	logger.Info("import requested", "reset", opts.Reset, "phases", opts.Phases)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.Import.Timeout)
	defer cancel()

	res, err := s.runner.TryRun(ctx, opts)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	logger.Info("import finished", "run_id", res.RunID.String(), "duration", res.Duration.String())
	writeJSON(w, http.StatusOK, res)
}

func parseRunOptions(r *http.Request) (importer.RunOptions, error) {
	q := r.URL.Query()
	var opts importer.RunOptions

	if v := q.Get("reset"); v != "" {
		reset, err := strconv.ParseBool(v)
		if err != nil {
			return opts, err
		}
		opts.Reset = reset
	}

	for _, raw := range q["phase"] {
		for _, name := range strings.Split(raw, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			p, err := importer.ParsePhase(name)
			if err != nil {
				return opts, err
			}
			opts.Phases = append(opts.Phases, p)
		}
	}
	return opts, nil
}

func (s *Server) handleLatestImport(w http.ResponseWriter, r *http.Request) {
	res := s.runner.Latest()
	if res == nil {
		respondError(w, r, core.ErrNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.Counts(r.Context())
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleJournal returns the audit records written for one source file.
// limit=N keeps only the last N records.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		respondError(w, r, core.ErrNotFound, http.StatusNotFound)
		return
	}

	records, err := s.journal.Read(chi.URLParam(r, "source"))
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	if limit := parseIntParam(r, "limit", 0); limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	if records == nil {
		records = []core.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
