// Package api serves stored ascents, detected cloud layers and
// derived indices over HTTP.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/epcc-data/ascent.report/internal/db"
	"github.com/epcc-data/ascent.report/internal/thermo"
	"github.com/epcc-data/ascent.report/internal/units"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db           *db.DB
	units        string
	modelVersion string
	registry     *prometheus.Registry
}

// NewServer builds a server reporting heights in the given units and
// reading layers detected under modelVersion. registry may be nil when
// no metrics endpoint is wanted.
func NewServer(database *db.DB, heightUnits, modelVersion string, registry *prometheus.Registry) *Server {
	return &Server{
		db:           database,
		units:        heightUnits,
		modelVersion: modelVersion,
		registry:     registry,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ascents", s.listAscents)
	mux.HandleFunc("/api/ascents/", s.ascentSubresource)
	mux.HandleFunc("/api/config", s.showConfig)
	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) listAscents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ascents, err := s.db.ListAscents(r.Context())
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve ascents: %v", err))
		return
	}
	if ascents == nil {
		ascents = []db.AscentSummary{}
	}

	if err := json.NewEncoder(w).Encode(ascents); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write ascents")
		return
	}
}

// ascentSubresource dispatches /api/ascents/{id}[/layers|/indices|/chart].
func (s *Server) ascentSubresource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/ascents/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusBadRequest, "Missing ascent ID")
		return
	}

	switch sub {
	case "":
		s.showAscent(w, r, id)
	case "layers":
		s.showLayers(w, r, id)
	case "indices":
		s.showIndices(w, r, id)
	case "chart":
		s.showChart(w, r, id)
	default:
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusNotFound, "Unknown ascent resource")
	}
}

// ascentDetail is the full-profile response shape. Heights are
// converted to the server's units; missing samples become JSON null,
// which encoding/json cannot express for a bare NaN.
type ascentDetail struct {
	ID            string     `json:"id"`
	SensorPackage int        `json:"sensor_package"`
	LaunchTime    time.Time  `json:"launch_time"`
	HeightUnits   string     `json:"height_units"`
	Height        []*float64 `json:"height"`
	PressureHPa   []*float64 `json:"pressure_hpa"`
	TdryC         []*float64 `json:"tdry_c"`
	TdewC         []*float64 `json:"tdew_c"`
	RH            []*float64 `json:"rh"`
	RHIce         []*float64 `json:"rh_ice"`
}

// nanToNull maps NaN samples onto nil so they encode as JSON null.
func nanToNull(vals []float64) []*float64 {
	out := make([]*float64, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		v := v
		out[i] = &v
	}
	return out
}

func (s *Server) showAscent(w http.ResponseWriter, r *http.Request, id string) {
	w.Header().Set("Content-Type", "application/json")

	a, err := s.db.LoadAscent(r.Context(), id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Failed to load ascent: %v", err))
		return
	}

	heights := make([]float64, len(a.HeightKM))
	for i, h := range a.HeightKM {
		heights[i] = units.ConvertHeight(h, s.units)
	}
	detail := ascentDetail{
		ID:            a.ID,
		SensorPackage: a.SensorPackage,
		LaunchTime:    a.LaunchTime,
		HeightUnits:   s.units,
		Height:        nanToNull(heights),
		PressureHPa:   nanToNull(a.PressureHPa),
		TdryC:         nanToNull(a.TdryC),
		TdewC:         nanToNull(a.TdewC),
		RH:            nanToNull(a.RH),
		RHIce:         nanToNull(a.RHIce),
	}

	if err := json.NewEncoder(w).Encode(detail); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write ascent")
	}
}

// layerAPI is one detected layer with heights in the server's units.
type layerAPI struct {
	LayerID     int     `json:"layer_id"`
	Type        string  `json:"type"`
	Base        float64 `json:"base"`
	Top         float64 `json:"top"`
	HeightUnits string  `json:"height_units"`
}

func (s *Server) showLayers(w http.ResponseWriter, r *http.Request, id string) {
	w.Header().Set("Content-Type", "application/json")

	layers, err := s.db.LoadLayers(r.Context(), id, s.modelVersion)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve layers: %v", err))
		return
	}

	out := make([]layerAPI, len(layers))
	for i, l := range layers {
		out[i] = layerAPI{
			LayerID:     l.LayerID,
			Type:        l.LayerType.String(),
			Base:        units.ConvertHeight(l.BaseKM, s.units),
			Top:         units.ConvertHeight(l.TopKM, s.units),
			HeightUnits: s.units,
		}
	}

	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write layers")
	}
}

// parcelAPI mirrors thermo.Parcel with nullable LFC and EL, which are
// NaN when the parcel never becomes buoyant.
type parcelAPI struct {
	LCL  float64  `json:"lcl_m"`
	LFC  *float64 `json:"lfc_m"`
	EL   *float64 `json:"el_m"`
	CAPE float64  `json:"cape_j_kg"`
	CIN  float64  `json:"cin_j_kg"`
}

// indicesAPI bundles the stability indices with the parcel analysis.
type indicesAPI struct {
	Indices thermo.Indices `json:"indices"`
	Parcel  *parcelAPI     `json:"parcel,omitempty"`
}

func nullableFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func (s *Server) showIndices(w http.ResponseWriter, r *http.Request, id string) {
	w.Header().Set("Content-Type", "application/json")

	a, err := s.db.LoadAscent(r.Context(), id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Failed to load ascent: %v", err))
		return
	}

	ix, err := thermo.StabilityIndices(a.PressureHPa, a.TdryC, a.TdewC, a.WindU, a.WindV)
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("Failed to compute indices: %v", err))
		return
	}
	resp := indicesAPI{Indices: ix}

	heightsM := make([]float64, len(a.HeightKM))
	for i, h := range a.HeightKM {
		heightsM[i] = h * 1000
	}
	if parcel, err := thermo.LiftParcel(a.PressureHPa, a.TdryC, a.TdewC, heightsM); err == nil {
		resp.Parcel = &parcelAPI{
			LCL:  parcel.LCL,
			LFC:  nullableFloat(parcel.LFC),
			EL:   nullableFloat(parcel.EL),
			CAPE: parcel.CAPE,
			CIN:  parcel.CIN,
		}
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write indices")
	}
}

// showChart renders the RH profile and detected layers as an
// interactive line chart (HTML).
func (s *Server) showChart(w http.ResponseWriter, r *http.Request, id string) {
	a, err := s.db.LoadAscent(r.Context(), id)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Failed to load ascent: %v", err))
		return
	}
	layers, err := s.db.LoadLayers(r.Context(), id, s.modelVersion)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve layers: %v", err))
		return
	}

	line := charts.NewLine()
	subtitle := fmt.Sprintf("model=%s layers=%d", s.modelVersion, len(layers))
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Ascent " + id, Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "RH (ice) vs Height: " + id, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Height (km)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "RH wrt ice (%)"}),
	)

	xs := make([]string, 0, len(a.HeightKM))
	ys := make([]opts.LineData, 0, len(a.HeightKM))
	for i := range a.HeightKM {
		if math.IsNaN(a.HeightKM[i]) {
			continue
		}
		xs = append(xs, strconv.FormatFloat(a.HeightKM[i], 'f', 3, 64))
		if math.IsNaN(a.RHIce[i]) {
			ys = append(ys, opts.LineData{Value: nil})
		} else {
			ys = append(ys, opts.LineData{Value: a.RHIce[i]})
		}
	}
	line.SetXAxis(xs)
	line.AddSeries("RH (ice)", ys)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	config := map[string]interface{}{
		"units":         s.units,
		"model_version": s.modelVersion,
	}

	if err := json.NewEncoder(w).Encode(config); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}
