// Package api exposes a markerbed Store over HTTP.
//
// The upsert, batch, replace, clear, export and status endpoints keep the
// request and response shapes the automation tools and the map client already
// depend on.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/andreiashu/markerbed"
)

// maxBodyBytes bounds request bodies. A full replace of a large dataset fits
// comfortably.
const maxBodyBytes = 32 << 20

// defaultNearRadiusMeters is used by /api/markers/near without a radius.
const defaultNearRadiusMeters = 1000

// Handlers contains the HTTP handlers for one dataset.
type Handlers struct {
	store   *markerbed.Store
	catalog *markerbed.Catalog
	log     *zap.Logger
}

// NewHandlers creates handlers for store, reading through catalog.
func NewHandlers(store *markerbed.Store, catalog *markerbed.Catalog, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{store: store, catalog: catalog, log: log}
}

// NewRouter wires every route. gatherer may be nil to leave out /metrics.
func NewRouter(h *Handlers, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()

	for _, path := range []string{"/webhook", "/api/feishu/webhook", "/api/data/upsert"} {
		r.HandleFunc(path, h.HandleUpsert).Methods(http.MethodPost)
	}
	r.HandleFunc("/api/data/batch", h.HandleBatch).Methods(http.MethodPost)
	r.HandleFunc("/api/data/replace", h.HandleReplace).Methods(http.MethodPost)
	r.HandleFunc("/api/data/clear", h.HandleClear).Methods(http.MethodPost)

	r.HandleFunc("/api/data/csv", h.HandleExport).Methods(http.MethodGet)
	r.HandleFunc("/markers.csv", h.HandleExport).Methods(http.MethodGet)
	r.HandleFunc("/api/status", h.HandleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/markers", h.HandleMarkers).Methods(http.MethodGet)
	r.HandleFunc("/api/markers/near", h.HandleNear).Methods(http.MethodGet)
	r.HandleFunc("/api/markers/nearest", h.HandleNearest).Methods(http.MethodGet)
	r.HandleFunc("/api/regions", h.HandleRegions).Methods(http.MethodGet)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

// HandleUpsert adds or updates one record.
// Success: {success, action, record, totalCount}. Rejection: {success:false, error, field}.
func (h *Handlers) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeBody(r, &payload); err != nil {
		h.respondMalformed(w, markerbed.OpUpsert, err)
		return
	}

	res, err := h.store.Upsert(r.Context(), payload)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// HandleBatch upserts a list of records, all or nothing.
func (h *Handlers) HandleBatch(w http.ResponseWriter, r *http.Request) {
	payloads, err := decodeRecordList(r)
	if err != nil {
		h.respondMalformed(w, markerbed.OpBatch, err)
		return
	}

	res, err := h.store.UpsertBatch(r.Context(), payloads)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// HandleReplace swaps the whole dataset for the supplied list, all or nothing.
func (h *Handlers) HandleReplace(w http.ResponseWriter, r *http.Request) {
	payloads, err := decodeRecordList(r)
	if err != nil {
		h.respondMalformed(w, markerbed.OpReplace, err)
		return
	}

	res, err := h.store.Replace(r.Context(), payloads)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// clearRequest is the body of /api/data/clear.
type clearRequest struct {
	Confirm bool `json:"confirm"`
}

// HandleClear resets the dataset to its header. Requires {"confirm": true}.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		h.respondMalformed(w, markerbed.OpClear, err)
		return
	}

	res, err := h.store.Clear(r.Context(), req.Confirm)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// HandleExport returns the raw dataset file.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.Export()
	if err != nil {
		h.log.Error("export failed", zap.Error(err))
		respondError(w, "failed to read dataset", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// HandleStatus returns the ingestion ledger and the record count.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Status()
	if err != nil {
		h.log.Error("status failed", zap.Error(err))
		respondError(w, "failed to read dataset", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// HandleMarkers lists markers, optionally filtered by ?kecamatan=. A filter
// naming no known kecamatan is a 400.
func (h *Handlers) HandleMarkers(w http.ResponseWriter, r *http.Request) {
	records, err := h.catalog.Records()
	if err != nil {
		h.log.Error("loading markers failed", zap.Error(err))
		respondError(w, "failed to read dataset", http.StatusInternalServerError)
		return
	}
	kecamatan := strings.TrimSpace(r.URL.Query().Get("kecamatan"))
	if kecamatan != "" && !markerbed.IsRegion(records, kecamatan) {
		respondError(w, fmt.Sprintf("unknown kecamatan %q", kecamatan), http.StatusBadRequest)
		return
	}
	records = markerbed.FilterByKecamatan(records, kecamatan)
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    markerbed.Markers(records),
		"count":   len(records),
	})
}

// HandleNear lists markers within ?radius= meters of ?lat= and ?lng=.
func (h *Handlers) HandleNear(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lng, ok := queryPosition(w, q)
	if !ok {
		return
	}
	radius := float64(defaultNearRadiusMeters)
	if s := q.Get("radius"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			respondError(w, "radius must be a non-negative number of meters", http.StatusBadRequest)
			return
		}
		radius = v
	}

	ix, err := h.catalog.Index()
	if err != nil {
		h.log.Error("loading index failed", zap.Error(err))
		respondError(w, "failed to read dataset", http.StatusInternalServerError)
		return
	}
	near := ix.Within(lat, lng, radius)
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    near,
		"count":   len(near),
	})
}

// HandleNearest returns the single marker closest to ?lat= and ?lng=, or 404
// when the dataset has none.
func (h *Handlers) HandleNearest(w http.ResponseWriter, r *http.Request) {
	lat, lng, ok := queryPosition(w, r.URL.Query())
	if !ok {
		return
	}

	ix, err := h.catalog.Index()
	if err != nil {
		h.log.Error("loading index failed", zap.Error(err))
		respondError(w, "failed to read dataset", http.StatusInternalServerError)
		return
	}
	n, found := ix.Nearest(lat, lng)
	if !found {
		respondError(w, "no markers", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    n,
	})
}

// queryPosition parses ?lat= and ?lng=, answering 400 itself when they are
// not valid coordinates.
func queryPosition(w http.ResponseWriter, q url.Values) (lat, lng float64, ok bool) {
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil || math.IsNaN(lat) || math.IsNaN(lng) || math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		respondError(w, "lat and lng must be coordinates in degrees", http.StatusBadRequest)
		return 0, 0, false
	}
	return lat, lng, true
}

// HandleRegions lists the distinct kecamatan values.
func (h *Handlers) HandleRegions(w http.ResponseWriter, r *http.Request) {
	records, err := h.catalog.Records()
	if err != nil {
		h.log.Error("loading regions failed", zap.Error(err))
		respondError(w, "failed to read dataset", http.StatusInternalServerError)
		return
	}
	regions := markerbed.Regions(records)
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    regions,
		"count":   len(regions),
	})
}

// respondStoreError maps store errors onto the response contracts.
func (h *Handlers) respondStoreError(w http.ResponseWriter, err error) {
	var ve *markerbed.ValidationError
	var be *markerbed.BatchError
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   ve.Reason,
			"field":   ve.Field,
		})
	case errors.As(err, &be):
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success":    false,
			"errors":     be.Errors,
			"validCount": be.ValidCount,
			"totalCount": be.TotalCount,
		})
	case markerbed.IsRejection(err):
		respondError(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error("store operation failed", zap.Error(err))
		respondError(w, "failed to update dataset", http.StatusInternalServerError)
	}
}

// respondMalformed answers a body that could not be decoded and counts it in
// the store's ledger.
func (h *Handlers) respondMalformed(w http.ResponseWriter, op markerbed.Operation, err error) {
	h.store.RecordMalformed(op, err)
	respondError(w, err.Error(), http.StatusBadRequest)
}

var errEmptyBody = errors.New("request body is empty")

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// decodeRecordList accepts a bare array or an object carrying the array under
// "records" or "data".
func decodeRecordList(r *http.Request) ([]map[string]any, error) {
	var raw json.RawMessage
	if err := decodeBody(r, &raw); err != nil {
		return nil, err
	}

	var list []map[string]any
	if err := unmarshalNumbers(raw, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Records []map[string]any `json:"records"`
		Data    []map[string]any `json:"data"`
	}
	if err := unmarshalNumbers(raw, &wrapped); err != nil {
		return nil, errors.New("expected an array of records or {\"records\": [...]}")
	}
	if wrapped.Records != nil {
		return wrapped.Records, nil
	}
	return wrapped.Data, nil
}

func unmarshalNumbers(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
