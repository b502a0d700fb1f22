package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrattend/internal/attendance"
	"qrattend/internal/classes"
	"qrattend/internal/metrics"
	"qrattend/internal/observability"
	"qrattend/internal/teachers"
)

const msgInternal = "Error en el servidor"

// classify maps a domain error to a status code and a user-facing message.
// Unknown errors are server errors; their detail never reaches the client.
func classify(err error) (int, string) {
	var (
		oor *attendance.OutOfRangeError
		av  *attendance.ValidationError
		cv  *classes.ValidationError
		tv  *teachers.ValidationError
	)
	switch {
	case errors.As(err, &oor):
		return http.StatusBadRequest, fmt.Sprintf(
			"Estás demasiado lejos del aula para registrar asistencia. Distancia: %.2f metros.", oor.Distance)
	case errors.As(err, &av):
		if av.Reason == "required" {
			return http.StatusBadRequest, "Todos los campos son obligatorios."
		}
		return http.StatusBadRequest, fmt.Sprintf("El campo %s es inválido.", av.Field)
	case errors.As(err, &cv):
		if cv.Reason == "required" {
			return http.StatusBadRequest, "El título y la ubicación son obligatorios"
		}
		return http.StatusBadRequest, fmt.Sprintf("El campo %s es inválido.", cv.Field)
	case errors.As(err, &tv):
		if tv.Reason == "required" {
			return http.StatusBadRequest, "Todos los campos son requeridos: usuario, contrasena, nombre, apellido, email"
		}
		return http.StatusBadRequest, fmt.Sprintf("El campo %s es inválido.", tv.Field)
	case errors.Is(err, teachers.ErrConflict):
		return http.StatusBadRequest, "El nombre de usuario o el correo electrónico ya está en uso"
	case errors.Is(err, teachers.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Credenciales inválidas"
	case errors.Is(err, teachers.ErrNotFound):
		return http.StatusNotFound, "Docente no encontrado"
	case errors.Is(err, attendance.ErrNotFound), errors.Is(err, classes.ErrNotFound):
		return http.StatusNotFound, "Clase no encontrada."
	case errors.Is(err, attendance.ErrForbidden):
		return http.StatusForbidden, "No tienes permiso para ver asistencias de esta clase."
	case errors.Is(err, attendance.ErrNoClasses):
		return http.StatusNotFound, "El docente no tiene clases registradas."
	}
	return http.StatusInternalServerError, msgInternal
}

// fail writes the error response. internal replaces the generic 500 message.
func (h *Handler) fail(c *gin.Context, err error, internal string) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		if internal != "" {
			msg = internal
		}
		h.Log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		observability.CaptureErr(err, map[string]string{
			"route":  c.FullPath(),
			"method": c.Request.Method,
			"id":     c.Param("id"),
		})
	}
	metrics.HTTPErrors.WithLabelValues(strconv.Itoa(status)).Inc()
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

// failWith answers a client error with a route-specific message.
func (h *Handler) failWith(c *gin.Context, err error, status int, msg string) {
	metrics.HTTPErrors.WithLabelValues(strconv.Itoa(status)).Inc()
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

func (h *Handler) badRequest(c *gin.Context, msg string) {
	metrics.HTTPErrors.WithLabelValues(strconv.Itoa(http.StatusBadRequest)).Inc()
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": msg})
}
