package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/coladapo/wealthincome/internal/model"
	"github.com/coladapo/wealthincome/internal/risk"
)

func riskRouter(mgr *risk.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, mgr, nil, nil, nil, nil, zap.NewNop())

	r := gin.New()
	r.GET("/risk", h.GetRiskProfile)
	r.PUT("/risk", h.UpdateRiskProfile)
	return r
}

func putRisk(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/risk", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateRiskProfileValidation(t *testing.T) {
	mgr := risk.NewManager(model.RiskProfile{
		MaxPositionFrac:     decimal.NewFromFloat(0.1),
		MaxPositions:        10,
		StopLossFrac:        decimal.NewFromFloat(0.05),
		TakeProfitFrac:      decimal.NewFromFloat(0.15),
		ConfidenceThreshold: 0.7,
	}, zap.NewNop())
	r := riskRouter(mgr)

	rejected := []string{
		`{"max_position_frac":"0","max_positions":5,"stop_loss_frac":"0.05","take_profit_frac":"0.15","confidence_threshold":0.7}`,
		`{"max_position_frac":"1.5","max_positions":5,"stop_loss_frac":"0.05","take_profit_frac":"0.15","confidence_threshold":0.7}`,
		`{"max_position_frac":"0.1","max_positions":0,"stop_loss_frac":"0.05","take_profit_frac":"0.15","confidence_threshold":0.7}`,
		`{"max_position_frac":"0.1","max_positions":5,"stop_loss_frac":"-0.05","take_profit_frac":"0.15","confidence_threshold":0.7}`,
		`{"max_position_frac":"0.1","max_positions":5,"stop_loss_frac":"1","take_profit_frac":"0.15","confidence_threshold":0.7}`,
		`{"max_position_frac":"0.1","max_positions":5,"stop_loss_frac":"0.05","take_profit_frac":"2","confidence_threshold":0.7}`,
		`{"max_position_frac":"0.1","max_positions":5,"stop_loss_frac":"0.05","take_profit_frac":"0.15","confidence_threshold":1.5}`,
	}
	for _, body := range rejected {
		w := putRisk(r, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: got %d; want 400", body, w.Code)
		}
	}

	// The stored profile never changed.
	assert.True(t, mgr.Profile().StopLossFrac.Equal(decimal.NewFromFloat(0.05)))

	// A well-formed update is applied.
	w := putRisk(r, `{"max_position_frac":"0.2","max_positions":5,"stop_loss_frac":"0.1","take_profit_frac":"0.2","confidence_threshold":0.6}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mgr.Profile().MaxPositionFrac.Equal(decimal.NewFromFloat(0.2)))
	assert.Equal(t, 0.6, mgr.Profile().ConfidenceThreshold)
	assert.True(t, mgr.Profile().TakeProfitFrac.Equal(decimal.NewFromFloat(0.2)))
}
