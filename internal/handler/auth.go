package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qrattend/internal/auth"
	"qrattend/internal/teachers"
)

type loginRequest struct {
	Usuario    string `json:"usuario" binding:"required"`
	Contrasena string `json:"contrasena" binding:"required"`
}

type teacherView struct {
	ID       string `json:"id"`
	Usuario  string `json:"usuario"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Email    string `json:"email"`
}

func viewOf(t teachers.Teacher) teacherView {
	return teacherView{ID: t.ID, Usuario: t.Usuario, Nombre: t.Nombre, Apellido: t.Apellido, Email: t.Email}
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Usuario y contraseña son requeridos")
		return
	}
	t, err := h.Teachers.Authenticate(c.Request.Context(), req.Usuario, req.Contrasena)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	role := auth.RoleTeacher
	if h.AdminUser != "" && t.Usuario == h.AdminUser {
		role = auth.RoleAdmin
	}
	tok, err := auth.Issue(t.ID, t.Usuario, role, h.JWTIssuer, h.JWTSecret, h.AccessTTL)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Inicio de sesión exitoso",
		"docente":    viewOf(t),
		"token":      tok.AccessToken,
		"expires_at": tok.ExpiresAt.Unix(),
	})
}

func (h *Handler) checkSession(c *gin.Context) {
	t, err := h.Teachers.Get(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	if !t.Active {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token inválido o expirado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sesión válida", "docente": viewOf(t)})
}
