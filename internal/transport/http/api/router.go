package apihttp

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"tradepilot/internal/engine"
	"tradepilot/internal/report"
	"tradepilot/internal/store/journal"
	"tradepilot/internal/types"
	"tradepilot/internal/venue"
)

// signalSchema validates submissions after lenient coercion. Side and kind
// are closed enums; quantity must be strictly positive.
const signalSchema = `{
	"type": "object",
	"required": ["symbol", "side", "quantity"],
	"properties": {
		"symbol": {"type": "string", "minLength": 1},
		"side": {"enum": ["buy", "sell"]},
		"quantity": {"type": "number", "exclusiveMinimum": 0},
		"order_kind": {"enum": ["market", "limit", "stop"]},
		"limit_price": {"type": "number", "minimum": 0},
		"stop_price": {"type": "number", "minimum": 0},
		"reference_price": {"type": "number", "minimum": 0},
		"strategy": {"type": "string"}
	}
}`

// Router maps the pipeline onto HTTP handlers.
type Router struct {
	engine  *engine.Engine
	journal *journal.Journal
	report  *report.Builder
	venues  *venue.Registry
	schema  *jsonschema.Schema
}

func NewRouter(eng *engine.Engine, jrnl *journal.Journal, rep *report.Builder, venues *venue.Registry) *Router {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("signal.json", strings.NewReader(signalSchema)); err != nil {
		panic(err)
	}
	schema := compiler.MustCompile("signal.json")
	return &Router{engine: eng, journal: jrnl, report: rep, venues: venues, schema: schema}
}

// Register mounts the API under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	group.POST("/signals", r.handleSubmitSignal)
	group.GET("/signals", r.handleListSignals)
	group.GET("/signals/:id", r.handleGetSignal)
	group.GET("/positions", r.handleOpenPositions)
	group.GET("/positions/closed", r.handleClosedPositions)
	group.POST("/positions/:id/close", r.handleClosePosition)
	group.DELETE("/history", r.handleClearHistory)
	group.GET("/portfolio", r.handlePortfolio)
	group.GET("/performance", r.handlePerformance)
	group.GET("/status", r.handleStatus)
	if r.journal != nil {
		group.GET("/trades", r.handleTrades)
	}
	if r.report != nil {
		group.GET("/report", r.handleReport)
	}
}

// handleSubmitSignal accepts a signal payload, coercing stringly-typed
// numbers before schema validation, and runs it through the pipeline.
func (r *Router) handleSubmitSignal(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if !gjson.ValidBytes(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	payload := coercePayload(gjson.ParseBytes(body))
	if err := r.schema.Validate(payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sig := signalFromPayload(payload)
	out := r.engine.SubmitSignal(c.Request.Context(), sig)
	c.JSON(http.StatusOK, out)
}

// coercePayload extracts the known fields, converting number-like strings to
// numbers so clients that quote quantities still validate.
func coercePayload(doc gjson.Result) map[string]any {
	payload := make(map[string]any)
	str := func(key string) {
		if v := doc.Get(key); v.Exists() {
			payload[key] = strings.TrimSpace(v.String())
		}
	}
	num := func(key string) {
		v := doc.Get(key)
		if !v.Exists() {
			return
		}
		switch v.Type {
		case gjson.Number:
			payload[key] = v.Float()
		case gjson.String:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64); err == nil {
				payload[key] = f
			} else {
				payload[key] = v.String()
			}
		default:
			payload[key] = v.Value()
		}
	}
	str("symbol")
	str("side")
	str("order_kind")
	str("strategy")
	num("quantity")
	num("limit_price")
	num("stop_price")
	num("reference_price")
	return payload
}

func signalFromPayload(payload map[string]any) types.Signal {
	sig := types.Signal{
		Symbol:    payload["symbol"].(string),
		Side:      types.Side(payload["side"].(string)),
		Quantity:  payload["quantity"].(float64),
		OrderKind: types.OrderMarket,
	}
	if v, ok := payload["order_kind"].(string); ok && v != "" {
		sig.OrderKind = types.OrderKind(v)
	}
	if v, ok := payload["limit_price"].(float64); ok {
		sig.LimitPrice = v
	}
	if v, ok := payload["stop_price"].(float64); ok {
		sig.StopPrice = v
	}
	if v, ok := payload["reference_price"].(float64); ok {
		sig.ReferencePrice = v
	}
	if v, ok := payload["strategy"].(string); ok {
		sig.Strategy = v
	}
	return sig
}

func (r *Router) handleListSignals(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	c.JSON(http.StatusOK, gin.H{"signals": r.engine.Signals(limit)})
}

func (r *Router) handleGetSignal(c *gin.Context) {
	sig, ok := r.engine.GetSignal(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "signal not found"})
		return
	}
	c.JSON(http.StatusOK, sig)
}

func (r *Router) handleOpenPositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": r.engine.GetOpenPositions()})
}

func (r *Router) handleClosedPositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": r.engine.GetClosedPositions()})
}

func (r *Router) handleClosePosition(c *gin.Context) {
	pos, err := r.engine.ClosePosition(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, engine.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": types.BlockResourceConflict})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, pos)
	}
}

func (r *Router) handleClearHistory(c *gin.Context) {
	cleared := r.engine.ClearHistory()
	if r.journal != nil {
		if _, err := r.journal.ClearTrades(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

func (r *Router) handlePortfolio(c *gin.Context) {
	c.JSON(http.StatusOK, r.engine.GetPortfolioSnapshot(c.Request.Context()))
}

func (r *Router) handlePerformance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": r.engine.GetStrategyPerformance()})
}

type statusResponse struct {
	engine.StatusSummary
	Venues map[string]venue.Health `json:"venues,omitempty"`
}

func (r *Router) handleStatus(c *gin.Context) {
	resp := statusResponse{StatusSummary: r.engine.Status()}
	if r.venues != nil {
		resp.Venues = r.venues.HealthSnapshot(c.Request.Context())
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleTrades(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	trades, err := r.journal.ClosedTrades(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (r *Router) handleReport(c *gin.Context) {
	html, err := r.report.RenderHTML(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}
