package main

import (
	"context"
	"errors"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"typingscore/pkg/account"
	"typingscore/pkg/ocr"
	"typingscore/pkg/store"
	"typingscore/pkg/submission"
	"typingscore/process/recompute"
)

const maxUploadBytes = 10 << 20

type submitService interface {
	Submit(ctx context.Context, id submission.Identity, imageRef string) (submission.Outcome, error)
}

type leaderboardReader interface {
	Leaderboard(ctx context.Context, limit int) ([]store.LeaderboardEntry, error)
}

// Set in main once the database and backend are up.
var (
	submitter   submitService
	leaderboard leaderboardReader
	txStore     recompute.Beginner
)

func setupRoutes(r *gin.Engine) {
	r.GET("/healthz", healthHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	r.GET("/ranking", rankingHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/submissions", submitHandler)
	adminGroup := authGroup.Group("/admin")
	adminGroup.Use(requireRole(account.RoleAdministrator))
	adminGroup.POST("/recompute", recomputeHandler)
	adminGroup.POST("/operators", createOperatorHandler)
}

func healthHandler(c *gin.Context) {
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func meHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"username": c.GetString("username"), "role": c.GetString("role")})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, err := issueAccessToken(op, accessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := accounts.IssueRefreshToken(c.Request.Context(), op.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token.
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, next, err := accounts.Rotate(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, account.ErrInvalidToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	tokenString, err := issueAccessToken(op, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": next})
}

// revokeRefreshHandler revokes a refresh token (logout).
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := accounts.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, account.ErrInvalidToken) {
			c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

func createOperatorHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role == "" {
		req.Role = account.RoleBot
	}
	op, err := accounts.Register(c.Request.Context(), req.Username, req.Password, req.Role)
	switch {
	case errors.Is(err, account.ErrOperatorExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": op.ID, "username": op.Username, "role": req.Role})
}

type submitRequest struct {
	ImageURL  string `json:"image_url" form:"image_url"`
	UserID    string `json:"user_id" form:"user_id"`
	Username  string `json:"username" form:"username"`
	ChannelID string `json:"channel_id" form:"channel_id"`
}

// submitHandler analyses a screenshot given as image_url or as a multipart file.
func submitHandler(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	imageRef := req.ImageURL
	if file, err := c.FormFile("file"); err == nil {
		if file.Size > maxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 10MB)"})
			return
		}
		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file unreadable"})
			return
		}
		img, err := imaging.Decode(src, imaging.AutoOrientation(true))
		src.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is not a supported image"})
			return
		}
		dir := filepath.Join(uploadBaseDir(), time.Now().Format("2006-01"))
		path := filepath.Join(dir, uuid.NewString()+".png")
		if err := saveImage(dir, path, img); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
			return
		}
		imageRef = path
	} else if !ocr.IsRemote(imageRef) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_url (http or https) or file is required"})
		return
	}

	id := submission.Identity{UserID: req.UserID, Username: req.Username, ChannelID: req.ChannelID}
	if id.UserID == "" {
		id.UserID = c.GetString("username")
	}
	out, err := submitter.Submit(c.Request.Context(), id, imageRef)
	if err != nil {
		c.JSON(submitStatus(err), gin.H{"error": submission.Message(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": out, "message": out.Notice(qualifyingLevel())})
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, ocr.ErrPollTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, store.ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, ocr.ErrRecognition):
		return http.StatusBadGateway
	}
	return http.StatusUnprocessableEntity
}

func qualifyingLevel() int {
	if cfg.QualifyingLevel > 0 {
		return cfg.QualifyingLevel
	}
	return submission.DefaultQualifyingLevel
}

// rankingHandler returns each user's best score, top 16 unless all=true.
func rankingHandler(c *gin.Context) {
	limit := store.DefaultLeaderboardSize
	if all, _ := strconv.ParseBool(c.Query("all")); all {
		limit = 0
	}
	entries, err := leaderboard.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": submission.Message(err)})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// recomputeHandler re-derives every stored score. dry_run=true only counts.
func recomputeHandler(c *gin.Context) {
	svc := recompute.New(txStore)
	svc.DryRun, _ = strconv.ParseBool(c.Query("dry_run"))
	counts, err := svc.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": submission.Message(err)})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func saveImage(dir, path string, img image.Image) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return imaging.Save(img, path)
}
