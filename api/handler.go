package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/coladapo/wealthincome/internal/engine"
	"github.com/coladapo/wealthincome/internal/ledger"
	"github.com/coladapo/wealthincome/internal/marketdata"
	"github.com/coladapo/wealthincome/internal/model"
	"github.com/coladapo/wealthincome/internal/risk"
	"github.com/coladapo/wealthincome/internal/sim"
	"github.com/coladapo/wealthincome/internal/storage"
)

type Handler struct {
	store    *storage.Store
	book     *ledger.Portfolio
	riskMgr  *risk.Manager
	alerts   *sim.AlertEvaluator
	exec     *sim.Executor
	pipeline *engine.Pipeline
	market   marketdata.Provider
	logger   *zap.Logger
}

func NewHandler(store *storage.Store, book *ledger.Portfolio, riskMgr *risk.Manager,
	alerts *sim.AlertEvaluator, exec *sim.Executor, pipeline *engine.Pipeline,
	market marketdata.Provider, logger *zap.Logger) *Handler {
	return &Handler{
		store:    store,
		book:     book,
		riskMgr:  riskMgr,
		alerts:   alerts,
		exec:     exec,
		pipeline: pipeline,
		market:   market,
		logger:   logger,
	}
}

// Auth Handlers

func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	userID, err := h.store.CreateUser(c.Request.Context(), req.Email, string(hash))
	if err != nil {
		h.logger.Error("failed to register user", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user created", "id": userID})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, hash, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Signal Handlers

func (h *Handler) GetSignal(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	if sig, ok := h.pipeline.Latest(symbol); ok {
		c.JSON(http.StatusOK, sig)
		return
	}

	signals, err := h.store.LatestSignals(c.Request.Context(), symbol, 1)
	if err != nil {
		h.logger.Error("failed to query signals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if len(signals) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no signal for " + symbol})
		return
	}
	c.JSON(http.StatusOK, signals[0])
}

func (h *Handler) GetSignalHistory(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 20
	}

	signals, err := h.store.LatestSignals(c.Request.Context(), symbol, limit)
	if err != nil {
		h.logger.Error("failed to query signal history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, signals)
}

// Portfolio Handlers

func (h *Handler) GetPortfolio(c *gin.Context) {
	view := h.book.View()
	unrealized := view.Unrealized(h.book.Marks())

	c.JSON(http.StatusOK, gin.H{
		"cash":           view.Cash,
		"equity":         view.Equity,
		"contributed":    view.Contributed,
		"realized_pnl":   view.Realized,
		"unrealized_pnl": unrealized,
		"positions":      view.Positions,
		"equity_curve":   view.EquityCurve,
	})
}

func (h *Handler) GetPositions(c *gin.Context) {
	c.JSON(http.StatusOK, h.book.View().Positions)
}

func (h *Handler) GetJournal(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	trades, err := h.store.ListTrades(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to query journal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, trades)
}

// PlaceOrder executes a manual paper order at the current quote.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req struct {
		Symbol   string          `json:"symbol" binding:"required"`
		Side     model.Side      `json:"side" binding:"required"`
		Quantity decimal.Decimal `json:"quantity" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Side != model.SideBuy && req.Side != model.SideSell {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be buy or sell"})
		return
	}
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return
	}

	symbol := strings.ToUpper(req.Symbol)
	quote, err := h.market.FetchQuote(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no market data for " + symbol})
		return
	}

	intent := model.OrderIntent{
		Symbol:   symbol,
		Side:     req.Side,
		Quantity: req.Quantity,
		Reason:   "manual",
	}
	order, _, err := h.exec.Execute(intent, quote.Price, time.Now())
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "order": order})
		return
	}
	c.JSON(http.StatusCreated, order)
}

// Risk Handlers

func (h *Handler) GetRiskProfile(c *gin.Context) {
	c.JSON(http.StatusOK, h.riskMgr.Profile())
}

func (h *Handler) UpdateRiskProfile(c *gin.Context) {
	var req model.RiskProfile
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxPositionFrac.LessThanOrEqual(decimal.Zero) || req.MaxPositionFrac.GreaterThan(decimal.NewFromInt(1)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_position_frac must be in (0, 1]"})
		return
	}
	one := decimal.NewFromInt(1)
	if req.StopLossFrac.LessThanOrEqual(decimal.Zero) || req.StopLossFrac.GreaterThanOrEqual(one) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stop_loss_frac must be in (0, 1)"})
		return
	}
	if req.TakeProfitFrac.LessThanOrEqual(decimal.Zero) || req.TakeProfitFrac.GreaterThanOrEqual(one) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "take_profit_frac must be in (0, 1)"})
		return
	}
	if req.ConfidenceThreshold < 0 || req.ConfidenceThreshold > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confidence_threshold must be in [0, 1]"})
		return
	}
	if req.MaxPositions < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_positions must be at least 1"})
		return
	}

	h.riskMgr.SetProfile(req)
	c.JSON(http.StatusOK, req)
}

// Alert Handlers

func (h *Handler) CreateAlert(c *gin.Context) {
	var req struct {
		Symbol    string          `json:"symbol" binding:"required"`
		Above     bool            `json:"above"`
		Threshold decimal.Decimal `json:"threshold" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Threshold.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be positive"})
		return
	}

	alert := h.alerts.AddAlert(strings.ToUpper(req.Symbol), req.Above, req.Threshold)
	c.JSON(http.StatusCreated, alert)
}

func (h *Handler) ListAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, h.alerts.Alerts())
}
