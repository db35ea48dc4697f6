package main

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// API serves the breach-lookup endpoints.
type API struct {
	store *Store
}

func NewAPI(store *Store) *API {
	return &API{store: store}
}

func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/range/", a.handleRange)
	mux.HandleFunc("/api/stats", a.handleStats)
	mux.HandleFunc("/api/add_passwords", a.handleAddPasswords)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type rangeMatch struct {
	Suffix string `json:"suffix"`
	Count  int    `json:"count"`
}

// handleRange implements the k-anonymity range query: the caller reveals
// only the first 5 hex chars of a SHA-1 and matches the suffixes locally.
func (a *API) handleRange(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimPrefix(r.URL.Path, "/api/range/")
	if len(prefix) != 5 {
		writeError(w, http.StatusBadRequest, "Hash prefix must be exactly 5 characters")
		return
	}
	prefix = strings.ToUpper(prefix)
	if !isHex(prefix) {
		writeError(w, http.StatusBadRequest, "Invalid hash prefix format")
		return
	}

	rows, err := a.store.Range(prefix)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	matches := make([]rangeMatch, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, rangeMatch{Suffix: row.HashSuffix, Count: row.Count})
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func isHex(s string) bool {
	for _, c := range s {
		if !strings.ContainsRune("0123456789ABCDEF", c) {
			return false
		}
	}
	return true
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	stat, err := a.store.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var last any
	if stat.LastUpdated != nil {
		last = stat.LastUpdated.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_passwords": stat.TotalPasswords,
		"total_breaches":  stat.TotalBreaches,
		"last_updated":    last,
	})
}

type addPasswordsRequest struct {
	Passwords []json.RawMessage `json:"passwords"`
}

type passwordEntry struct {
	Password string `json:"password"`
	Count    int    `json:"count"`
}

func (a *API) handleAddPasswords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req addPasswordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Passwords == nil {
		writeError(w, http.StatusBadRequest, "Missing passwords field")
		return
	}

	added := 0
	for _, raw := range req.Passwords {
		password, count := decodeEntry(raw)
		if password == "" {
			continue
		}
		sum := fmt.Sprintf("%X", sha1.Sum([]byte(password)))
		if err := a.store.Upsert(sum[:5], sum[5:], count); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		added++
	}

	total, err := a.store.Total()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := a.store.UpdateTotals(total, time.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logrus.Infof("Added %d password hashes (total %d)", added, total)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "added": added, "total": total})
}

// decodeEntry accepts either a bare string or a {password, count} object.
func decodeEntry(raw json.RawMessage) (string, int) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, 1
	}
	var e passwordEntry
	if err := json.Unmarshal(raw, &e); err == nil {
		if e.Count <= 0 {
			e.Count = 1
		}
		return e.Password, e.Count
	}
	return "", 0
}
