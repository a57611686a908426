package http

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"account-api/internal/domain"
	"account-api/internal/service"
	"account-api/internal/snapshot"
	"account-api/internal/storage"
)

// Handler wires HTTP routes to the account service.
type Handler struct {
	accounts  service.AccountService
	snapshots snapshot.Manager
	logger    *logrus.Logger
}

// NewHandler builds a Handler. snapshots may be nil when no object storage is configured.
func NewHandler(accounts service.AccountService, snapshots snapshot.Manager, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		accounts:  accounts,
		snapshots: snapshots,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	// match on the escaped path so /account/a%2Fb resolves to user "a/b"
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.Use(requestIDMiddleware(), accessLogMiddleware(h.logger), corsMiddleware())

	router.GET("/account/:user", h.getAccount)
	router.GET("/account", h.listAccounts)
	router.POST("/account", h.createAccount)

	router.GET("/snapshots", h.listSnapshots)
	router.POST("/snapshots", h.createSnapshot)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func (h *Handler) getAccount(c *gin.Context) {
	account, err := h.accounts.Find(c.Request.Context(), c.Param("user"))
	if err != nil {
		h.respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *Handler) listAccounts(c *gin.Context) {
	accounts, err := h.accounts.FindAll(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err)
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	c.JSON(http.StatusOK, accounts)
}

func (h *Handler) createAccount(c *gin.Context) {
	var account domain.Account
	if err := c.ShouldBindJSON(&account); err != nil {
		respondWithMessage(c, http.StatusBadRequest, "Malformed request body.")
		return
	}

	created, err := h.accounts.Insert(c.Request.Context(), account)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	c.Header("Location", resourceURL(c.Request, created.User))
	c.JSON(http.StatusCreated, created)
}

// resourceURL builds the absolute URL of an account from the request's scheme and host.
func resourceURL(r *http.Request, user string) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	// escaping "/" keeps handles containing it reachable through /account/:user
	u := url.URL{
		Scheme:  scheme,
		Host:    r.Host,
		Path:    "/account/" + user,
		RawPath: "/account/" + url.PathEscape(user),
	}
	return u.String()
}

type SnapshotResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func (h *Handler) listSnapshots(c *gin.Context) {
	if h.snapshots == nil {
		respondWithMessage(c, http.StatusServiceUnavailable, "Snapshot storage is not configured.")
		return
	}

	objects, err := h.snapshots.List(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	resp := make([]SnapshotResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createSnapshot(c *gin.Context) {
	if h.snapshots == nil {
		respondWithMessage(c, http.StatusServiceUnavailable, "Snapshot storage is not configured.")
		return
	}

	location, err := h.snapshots.SnapshotNow(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"location": location})
}

func objectToResponse(obj storage.ObjectInfo) SnapshotResponse {
	resp := SnapshotResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
