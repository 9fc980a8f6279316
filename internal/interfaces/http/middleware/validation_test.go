package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coopelec/backend/internal/domain/period"
	"github.com/coopelec/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type windowQuery struct {
	PurchasePointID *int64 `form:"purchase_point_id" binding:"omitempty,gt=0"`
	PeriodFrom      string `form:"period_from" binding:"required,period_month"`
	PeriodTo        string `form:"period_to" binding:"required,period_month"`
}

type cycleItem struct {
	PeriodBimestre string  `json:"period_bimestre" binding:"required,period_bimestre"`
	EnergyKwh      float64 `json:"energy_kwh" binding:"gte=0"`
}

type cycleBatch struct {
	Readings []cycleItem `json:"readings" binding:"required,min=1,max=2,dive"`
}

func newValidationRouter(t *testing.T) *gin.Engine {
	t.Helper()
	require.NoError(t, SetupValidator(period.DefaultBounds))

	r := gin.New()
	r.Use(RequestID())
	r.GET("/window", func(c *gin.Context) {
		var q windowQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			HandleBindError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	r.POST("/cycles", func(c *gin.Context) {
		var b cycleBatch
		if err := c.ShouldBindJSON(&b); err != nil {
			HandleBindError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return *resp.Error
}

func TestHandleBindError(t *testing.T) {
	r := newValidationRouter(t)

	t.Run("valid query passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/window?period_from=2024-01&period_to=2024-06", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("malformed month is a period format error", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/window?period_from=2024-13&period_to=2024-06", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		info := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeInvalidPeriodFormat, info.Code)
		assert.NotEmpty(t, info.RequestID)
		require.Len(t, info.Details, 1)
		assert.Equal(t, "period_from", info.Details[0].Field)
	})

	t.Run("year outside bounds is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/window?period_from=2019-12&period_to=2024-06", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidPeriodFormat, decodeError(t, w).Code)
	})

	t.Run("missing field is a validation error", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/window?period_from=2024-01&purchase_point_id=0", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		info := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeValidation, info.Code)
		fields := map[string]string{}
		for _, d := range info.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "This field is required", fields["period_to"])
		assert.Equal(t, "Must be greater than 0", fields["purchase_point_id"])
	})

	t.Run("non numeric id is invalid input", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/window?period_from=2024-01&period_to=2024-02&purchase_point_id=abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decodeError(t, w).Code)
	})

	t.Run("nested items report their path", func(t *testing.T) {
		body := `{"readings":[{"period_bimestre":"2024-01_2024-02","energy_kwh":1},{"period_bimestre":"2024-01","energy_kwh":1}]}`
		req := httptest.NewRequest(http.MethodPost, "/cycles", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		info := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeInvalidPeriodFormat, info.Code)
		require.Len(t, info.Details, 1)
		assert.Equal(t, "readings[1].period_bimestre", info.Details[0].Field)
	})

	t.Run("batch size is bounded", func(t *testing.T) {
		item := `{"period_bimestre":"2024-01_2024-02","energy_kwh":1}`
		body := `{"readings":[` + item + `,` + item + `,` + item + `]}`
		req := httptest.NewRequest(http.MethodPost, "/cycles", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		info := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeValidation, info.Code)
		assert.Equal(t, "Must contain at most 2 items", info.Details[0].Message)
	})

	t.Run("broken json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/cycles", strings.NewReader(`{"readings": [`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong json type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/cycles", strings.NewReader(`{"readings": "none"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decodeError(t, w).Code)
	})
}
