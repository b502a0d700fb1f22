package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"qrattend/internal/auth"
	"qrattend/internal/teachers"
)

var errForbiddenTeacher = errors.New("teacher record belongs to someone else")

const msgNotAllowed = "No tienes permiso para esta operación"

// selfOrAdmin lets a teacher touch their own record; any other id needs the
// admin role.
func selfOrAdmin(c *gin.Context, id string) bool {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return false
	}
	return claims.Role == auth.RoleAdmin || (claims.Subject != "" && claims.Subject == id)
}

func (h *Handler) listTeachers(c *gin.Context) {
	list, err := h.Teachers.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	if list == nil {
		list = []teachers.Teacher{}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Docentes obtenidos correctamente", "data": list})
}

func (h *Handler) getTeacher(c *gin.Context) {
	t, err := h.Teachers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Docente obtenido correctamente", "data": t})
}

func (h *Handler) createTeacher(c *gin.Context) {
	var in teachers.NewTeacher
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, "Todos los campos son requeridos: usuario, contrasena, nombre, apellido, email")
		return
	}
	t, err := h.Teachers.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Docente creado correctamente", "data": t})
}

func (h *Handler) updateTeacher(c *gin.Context) {
	if !selfOrAdmin(c, c.Param("id")) {
		h.failWith(c, errForbiddenTeacher, http.StatusForbidden, msgNotAllowed)
		return
	}
	var u teachers.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		h.badRequest(c, "Cuerpo de la solicitud inválido")
		return
	}
	t, err := h.Teachers.Update(c.Request.Context(), c.Param("id"), u)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Docente actualizado correctamente", "data": t})
}

// deactivateTeacher runs behind RequireRole(admin).
func (h *Handler) deactivateTeacher(c *gin.Context) {
	if err := h.Teachers.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Docente desactivado correctamente"})
}
