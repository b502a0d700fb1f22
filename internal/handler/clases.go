package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrattend/internal/auth"
	"qrattend/internal/classes"
	"qrattend/internal/qr"
	"qrattend/internal/stats"
)

var errNoQR = errors.New("qr renderer not configured")

// classView is a class plus the worker-maintained counters, when known.
type classView struct {
	classes.Class
	Link     string        `json:"enlace_asistencia,omitempty"`
	CheckIns *stats.Counts `json:"asistencias,omitempty"`
}

func (h *Handler) link(classID string) string {
	if h.QR == nil {
		return ""
	}
	return h.QR.URL(classID)
}

func (h *Handler) createClass(c *gin.Context) {
	var in classes.NewClass
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, "El título y la ubicación son obligatorios")
		return
	}
	cls, err := h.Classes.Create(c.Request.Context(), auth.TeacherID(c), in)
	if err != nil {
		h.fail(c, err, "Error interno del servidor al crear la clase")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Clase creada exitosamente",
		"clase":   classView{Class: cls, Link: h.link(cls.ID)},
	})
}

func (h *Handler) myClasses(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.Classes.ListByTeacher(ctx, auth.TeacherID(c))
	if err != nil {
		h.fail(c, err, "")
		return
	}

	var counts map[string]stats.Counts
	if h.Counters != nil && len(list) > 0 {
		ids := make([]string, len(list))
		for i, cls := range list {
			ids[i] = cls.ID
		}
		if counts, err = h.Counters.Get(ctx, ids); err != nil {
			h.Log.Warn("class counters unavailable", zap.Error(err))
		}
	}

	views := make([]classView, len(list))
	for i, cls := range list {
		views[i] = classView{Class: cls, Link: h.link(cls.ID)}
		if n, ok := counts[cls.ID]; ok {
			views[i].CheckIns = &n
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Clases obtenidas correctamente", "clases": views})
}

func (h *Handler) getClass(c *gin.Context) {
	cls, err := h.Classes.GetOwned(c.Request.Context(), c.Param("id"), auth.TeacherID(c))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Clase obtenida correctamente",
		"data":    classView{Class: cls, Link: h.link(cls.ID)},
	})
}

// classQR renders the check-in link of an owned class as PNG.
func (h *Handler) classQR(c *gin.Context) {
	if h.QR == nil {
		h.failWith(c, errNoQR, http.StatusServiceUnavailable, "Generación de códigos QR no disponible")
		return
	}
	cls, err := h.Classes.GetOwned(c.Request.Context(), c.Param("id"), auth.TeacherID(c))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	size := qr.DefaultSize
	if v := c.Query("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			size = n
		}
	}
	png, err := h.QR.PNG(cls.ID, size)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}
