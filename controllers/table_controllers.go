package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restqr/models"
	"github.com/yeremiapane/restqr/services"
	"github.com/yeremiapane/restqr/utils"
)

type TableController struct {
	tokens  *services.TokenService
	baseURL string
}

func NewTableController(tokens *services.TokenService, baseURL string) *TableController {
	return &TableController{tokens: tokens, baseURL: baseURL}
}

type tableTokenResponse struct {
	TableNumber    int        `json:"table_number"`
	Token          string     `json:"token"`
	ActivationCode string     `json:"activation_code"`
	MenuURL        string     `json:"menu_url"`
	SessionActive  bool       `json:"session_active"`
	SessionStart   *time.Time `json:"session_start,omitempty"`
	SessionEnd     *time.Time `json:"session_end,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (tc *TableController) present(t *models.TableToken) tableTokenResponse {
	return tableTokenResponse{
		TableNumber:    t.TableNumber,
		Token:          t.Token,
		ActivationCode: t.ActivationCode,
		MenuURL:        fmt.Sprintf("%s/menu/%s", tc.baseURL, t.Token),
		SessionActive:  t.SessionActive,
		SessionStart:   t.SessionStart,
		SessionEnd:     t.SessionEnd,
		CreatedAt:      t.CreatedAt,
	}
}

func parseTableNumber(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("table_number"))
	if err != nil || n <= 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("table number must be a positive integer"))
		return 0, false
	}
	return n, true
}

// IssueToken -> POST /admin/tables/:table_number/token
func (tc *TableController) IssueToken(c *gin.Context) {
	n, ok := parseTableNumber(c)
	if !ok {
		return
	}
	token, err := tc.tokens.GetOrCreate(c.Request.Context(), n)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table token", tc.present(token))
}

type activateRequest struct {
	DurationMinutes int `json:"duration_minutes" binding:"omitempty,min=1,max=1440"`
}

// Activate -> POST /admin/tables/:table_number/activate
func (tc *TableController) Activate(c *gin.Context) {
	n, ok := parseTableNumber(c)
	if !ok {
		return
	}
	var body activateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
	}

	token, err := tc.tokens.Activate(c.Request.Context(), n, time.Duration(body.DurationMinutes)*time.Minute)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table session activated", tc.present(token))
}

// Deactivate -> POST /admin/tables/:table_number/deactivate
func (tc *TableController) Deactivate(c *gin.Context) {
	n, ok := parseTableNumber(c)
	if !ok {
		return
	}
	token, err := tc.tokens.Deactivate(c.Request.Context(), n)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table session deactivated", tc.present(token))
}

// Retire -> DELETE /admin/tables/:table_number/token
func (tc *TableController) Retire(c *gin.Context) {
	n, ok := parseTableNumber(c)
	if !ok {
		return
	}
	if err := tc.tokens.Retire(c.Request.Context(), n); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table token retired", nil)
}

// ListActive -> GET /admin/tables/active
func (tc *TableController) ListActive(c *gin.Context) {
	tokens, err := tc.tokens.ListActiveSessions(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	out := make([]tableTokenResponse, 0, len(tokens))
	for i := range tokens {
		out = append(out, tc.present(&tokens[i]))
	}
	utils.RespondJSON(c, http.StatusOK, "Active tables", out)
}

type activateWithCodeRequest struct {
	Token          string `json:"token" binding:"required"`
	ActivationCode string `json:"activation_code" binding:"required,len=6"`
}

// ActivateWithCode -> POST /tables/activate
func (tc *TableController) ActivateWithCode(c *gin.Context) {
	var body activateWithCodeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	token, err := tc.tokens.ActivateWithCode(c.Request.Context(), body.Token, body.ActivationCode)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table session activated", gin.H{
		"table_number": token.TableNumber,
		"session_end":  token.SessionEnd,
	})
}
