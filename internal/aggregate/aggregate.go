// Package aggregate builds the member summary from the members,
// classes and payments services.
//
// The three source calls run concurrently and fail independently: a
// source that cannot be read is replaced by a placeholder, so the
// summary is always returned unless encoding it fails.
package aggregate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vyrodovalexey/gymgw/internal/backend"
	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/observability"
	"github.com/vyrodovalexey/gymgw/internal/util"
)

// MemberUnavailable is the error text of the member placeholder.
const MemberUnavailable = "No se pudo obtener información del miembro"

// summaryPrefix is the path segments preceding the member id.
var summaryPrefix = []string{"api", "resumen", "miembro"}

// Source names used in logs and metrics.
const (
	SourceMiembro = "miembro"
	SourceClases  = "clases"
	SourcePagos   = "pagos"
)

// Summary is the composite member document.
type Summary struct {
	Miembro      any          `json:"miembro"`
	Clases       []any        `json:"clases"`
	Pagos        []any        `json:"pagos"`
	Estadisticas Estadisticas `json:"estadisticas"`
}

// Estadisticas holds the derived totals.
type Estadisticas struct {
	TotalClases int     `json:"totalClases"`
	TotalPagos  float64 `json:"totalPagos"`
}

// Aggregator serves the member summary.
type Aggregator struct {
	caller  backend.Caller
	cfg     config.AggregationConfig
	logger  observability.Logger
	metrics *observability.Metrics
	marshal func(v any) ([]byte, error)
}

// Option is a functional option for the aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = metrics
	}
}

// WithMarshal replaces the JSON encoder of the summary.
func WithMarshal(marshal func(v any) ([]byte, error)) Option {
	return func(a *Aggregator) {
		a.marshal = marshal
	}
}

// New creates an aggregator calling the sources in cfg through caller.
func New(caller backend.Caller, cfg config.AggregationConfig, opts ...Option) *Aggregator {
	a := &Aggregator{
		caller:  caller,
		cfg:     cfg,
		logger:  observability.NopLogger(),
		marshal: json.Marshal,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MemberID returns the member id of a summary path such as
// /api/resumen/miembro/42.
func MemberID(path string) (string, error) {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	n := min(len(segments), len(summaryPrefix))
	if !slices.Equal(segments[:n], summaryPrefix[:n]) {
		return "", util.NewMalformedRequestError("ruta de resumen no reconocida")
	}
	if len(segments) <= len(summaryPrefix) {
		return "", util.NewMalformedRequestError("falta el identificador del miembro")
	}
	return segments[len(summaryPrefix)], nil
}

// ServeHTTP writes the summary for the member named in the request path.
func (a *Aggregator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := MemberID(r.URL.Path)
	if err != nil {
		util.WriteError(w, err)
		return
	}

	header := http.Header{}
	if auth := r.Header.Get("Authorization"); auth != "" {
		header.Set("Authorization", auth)
	}

	a.logger.WithContext(r.Context()).Info("building member summary",
		observability.String("member_id", id),
	)

	summary := a.Summarize(r.Context(), id, header)

	data, err := a.marshal(summary)
	if err != nil {
		aggErr := util.NewAggregationError("Error al generar resumen", err)
		a.logger.WithContext(r.Context()).Error("member summary failed",
			observability.String("member_id", id),
			observability.Error(err),
		)
		util.WriteJSONError(w, http.StatusInternalServerError, aggErr.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Summarize fetches the three sources concurrently and merges them.
// It waits for every call; one source failing never cancels the others.
func (a *Aggregator) Summarize(ctx context.Context, id string, header http.Header) *Summary {
	var (
		miembro any
		clases  []any
		pagos   []any
		g       errgroup.Group
	)

	g.Go(func() error {
		raw, ok := a.fetch(ctx, SourceMiembro, a.cfg.Miembro, id, header)
		if !ok {
			miembro = map[string]any{"id": id, "error": MemberUnavailable}
			return nil
		}
		miembro = raw
		return nil
	})
	g.Go(func() error {
		clases = a.fetchList(ctx, SourceClases, a.cfg.Clases, id, header)
		return nil
	})
	g.Go(func() error {
		pagos = a.fetchList(ctx, SourcePagos, a.cfg.Pagos, id, header)
		return nil
	})
	_ = g.Wait()

	return &Summary{
		Miembro: miembro,
		Clases:  clases,
		Pagos:   pagos,
		Estadisticas: Estadisticas{
			TotalClases: len(clases),
			TotalPagos:  sumMontos(pagos),
		},
	}
}

func (a *Aggregator) fetchList(ctx context.Context, name string, src config.SourceConfig, id string, header http.Header) []any {
	raw, ok := a.fetch(ctx, name, src, id, header)
	if !ok {
		return []any{}
	}
	list, isList := raw.([]any)
	if !isList {
		a.placeholder(ctx, name, id, "response is not a list")
		return []any{}
	}
	return list
}

// fetch calls one source and decodes its JSON body. ok is false when
// the call failed or the body could not be decoded.
func (a *Aggregator) fetch(ctx context.Context, name string, src config.SourceConfig, id string, header http.Header) (any, bool) {
	resp, err := a.caller.Call(ctx, backend.Request{
		Service: src.Service,
		Method:  http.MethodGet,
		Path:    strings.ReplaceAll(src.Path, "{id}", url.PathEscape(id)),
		Header:  header,
		Timeout: a.cfg.Timeout.Duration(),
	})
	if err != nil {
		a.placeholder(ctx, name, id, err.Error())
		return nil, false
	}

	var doc any
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		a.placeholder(ctx, name, id, "invalid JSON: "+err.Error())
		return nil, false
	}
	return doc, true
}

func (a *Aggregator) placeholder(ctx context.Context, name, id, reason string) {
	a.metrics.RecordAggregationPlaceholder(name)
	a.logger.WithContext(ctx).Warn("summary source unavailable, using placeholder",
		observability.String("source", name),
		observability.String("member_id", id),
		observability.String("reason", reason),
	)
}

// sumMontos adds the monto field of each payment. Numbers and numeric
// strings count; anything else counts as zero.
func sumMontos(pagos []any) float64 {
	var total float64
	for _, p := range pagos {
		obj, ok := p.(map[string]any)
		if !ok {
			continue
		}
		switch v := obj["monto"].(type) {
		case float64:
			total += v
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				total += f
			}
		}
	}
	return total
}
