package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type thresholdRequest struct {
	// nil removes the override
	Meters *float64 `json:"umbral_metros"`
}

func (h *Handler) thresholdBody(c *gin.Context) {
	v, overridden, err := h.Threshold.Current(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Umbral de distancia obtenido correctamente",
		"umbral_metros": v,
		"por_defecto":   h.Threshold.Default(),
		"personalizado": overridden,
	})
}

func (h *Handler) getThreshold(c *gin.Context) {
	h.thresholdBody(c)
}

func (h *Handler) putThreshold(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Cuerpo de la solicitud inválido")
		return
	}
	ctx := c.Request.Context()
	if req.Meters == nil {
		if err := h.Threshold.Reset(ctx); err != nil {
			h.fail(c, err, "")
			return
		}
	} else {
		if *req.Meters <= 0 {
			h.badRequest(c, "El umbral debe ser un número positivo de metros")
			return
		}
		if err := h.Threshold.Set(ctx, *req.Meters); err != nil {
			h.fail(c, err, "")
			return
		}
	}
	h.thresholdBody(c)
}
