package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"qrattend/internal/attendance"
	"qrattend/internal/auth"
	"qrattend/internal/export"
)

func (h *Handler) registerAttendance(c *gin.Context) {
	var in attendance.CheckIn
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, "Todos los campos son obligatorios.")
		return
	}
	rec, err := h.Registrar.Register(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err, "Error interno del servidor al registrar asistencia.")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Asistencia registrada correctamente.", "asistencia": rec})
}

func (h *Handler) publicClass(c *gin.Context) {
	info, err := h.Classes.Public(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Clase obtenida correctamente", "clase": info})
}

// filterFrom reads the claseId and fecha query parameters.
func (h *Handler) filterFrom(c *gin.Context) (attendance.Filter, error) {
	day, err := h.Query.ParseDay(c.Query("fecha"))
	if err != nil {
		return attendance.Filter{}, err
	}
	return attendance.Filter{ClassID: c.Query("claseId"), Day: day}, nil
}

func (h *Handler) myAttendance(c *gin.Context) {
	f, err := h.filterFrom(c)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	rows, err := h.Query.ListForTeacher(c.Request.Context(), auth.TeacherID(c), f)
	switch {
	case errors.Is(err, attendance.ErrNoClasses):
		c.JSON(http.StatusOK, gin.H{"message": "El docente no tiene clases registradas.", "asistencias": []attendance.Listing{}})
		return
	case err != nil:
		h.fail(c, err, "Error interno del servidor al obtener asistencias.")
		return
	}
	if rows == nil {
		rows = []attendance.Listing{}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asistencias obtenidas correctamente", "asistencias": rows})
}

func (h *Handler) exportAttendance(c *gin.Context) {
	f, err := h.filterFrom(c)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	rows, err := h.Query.ListForTeacher(c.Request.Context(), auth.TeacherID(c), f)
	if errors.Is(err, attendance.ErrForbidden) {
		h.failWith(c, err, http.StatusForbidden, "No tienes permiso para exportar asistencias de esta clase.")
		return
	}
	if err != nil {
		h.fail(c, err, "Error interno del servidor al exportar asistencias.")
		return
	}

	title := ""
	if f.ClassID != "" && len(rows) > 0 {
		title = rows[0].Class.Titulo
	}
	var buf bytes.Buffer
	if err := export.WriteAttendance(&buf, rows, h.Location); err != nil {
		h.fail(c, err, "Error interno del servidor al exportar asistencias.")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(title, h.now().In(h.Location))))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
