package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"little-stars/internal/domain"
	"little-stars/internal/service"
)

const (
	userKey      = "user"
	maxPhotoSize = 5 << 20
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth   service.AuthService
	photos service.PhotoService
	logger logrus.FieldLogger
}

// NewHandler builds the API handler. photos may be nil when no bucket is
// configured; photo routes then answer 404.
func NewHandler(auth service.AuthService, photos service.PhotoService, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		auth:   auth,
		photos: photos,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(h.requestLogger())

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
		api.POST("/auth/login", h.login)
		api.POST("/auth/logout", h.logout)

		authed := api.Group("", h.requireSession())
		authed.GET("/me", h.me)
		authed.GET("/students/:id/photo", h.getPhoto)
		authed.PUT("/students/:id/photo", h.putPhoto)
	}
}

type loginRequest struct {
	Mobile string `json:"mobile" binding:"required"`
	OTP    string `json:"otp" binding:"required"`
}

type LoginResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
}

type UserResponse struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Role       domain.Role `json:"role"`
	Class      string      `json:"class"`
	Division   string      `json:"division"`
	RollNumber string      `json:"roll_number"`
	PhotoURL   string      `json:"photo_url,omitempty"`
	ParentName string      `json:"parent_name"`
	Mobile     string      `json:"mobile"`
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	}
}

func (h *Handler) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		user, err := h.auth.Verify(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrSessionRevoked) || errors.Is(err, service.ErrStudentNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
				return
			}
			h.logger.WithError(err).Error("verify session")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.auth.Authenticate(c.Request.Context(), req.Mobile, req.OTP)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.WithError(err).Error("login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		User:      userToResponse(*res.User),
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.Format(time.RFC3339),
	})
}

// logout always answers 204; clients sign out locally whatever happens here.
func (h *Handler) logout(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token != "" {
		if err := h.auth.TerminateSession(c.Request.Context(), token); err != nil {
			h.logger.WithError(err).Debug("logout with unusable token")
		}
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, userToResponse(*currentUser(c)))
}

func (h *Handler) getPhoto(c *gin.Context) {
	if h.photos == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo storage not configured"})
		return
	}

	url, err := h.photos.PhotoURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) || errors.Is(err, service.ErrNoPhoto) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("photo url")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

func (h *Handler) putPhoto(c *gin.Context) {
	if h.photos == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo storage not configured"})
		return
	}

	id := c.Param("id")
	if currentUser(c).ID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot change another student's photo"})
		return
	}

	header, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	if header.Size > maxPhotoSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo is larger than 5MB"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	location, err := h.photos.UploadPhoto(c.Request.Context(), id, file, header.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedPhoto):
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrStudentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			h.logger.WithError(err).Error("upload photo")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	h.logger.WithFields(logrus.Fields{"student": id, "location": location}).Info("photo updated")
	c.JSON(http.StatusOK, gin.H{"photo_url": photoPath(id)})
}

func currentUser(c *gin.Context) *domain.User {
	return c.MustGet(userKey).(*domain.User)
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func photoPath(id string) string {
	return "/api/students/" + id + "/photo"
}

func userToResponse(user domain.User) UserResponse {
	resp := UserResponse{
		ID:         user.ID,
		Name:       user.Name,
		Role:       user.Role,
		Class:      user.Class,
		Division:   user.Division,
		RollNumber: user.RollNumber,
		PhotoURL:   user.PhotoURL,
		ParentName: user.ParentName,
		Mobile:     user.Mobile,
	}
	// bucket locations are not fetchable by clients
	if strings.HasPrefix(resp.PhotoURL, "s3://") {
		resp.PhotoURL = photoPath(user.ID)
	}
	return resp
}
