package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/kaviselvaram-dev/docvault/blob"
	"github.com/kaviselvaram-dev/docvault/db"
	"github.com/kaviselvaram-dev/docvault/encryption"
	"github.com/kaviselvaram-dev/docvault/models"
	"github.com/kaviselvaram-dev/docvault/store"
	"github.com/labstack/echo/v4"
)

// DefaultExpiryLookaheadDays lookahead for the expiring-soon listing
const DefaultExpiryLookaheadDays = 7

// Handlers bundles dependencies for the vault HTTP endpoints
type Handlers struct {
	goutils.Component

	persistence db.Client
	vault       store.DocumentVault

	sessionSecret string
}

/*
NewHandlers define the vault HTTP handler set

	@param persistence db.Client - persistence layer client
	@param vault store.DocumentVault - document vault
	@param sessionSecret string - secret signing session tokens
	@returns handler set
*/
func NewHandlers(
	persistence db.Client, vault store.DocumentVault, sessionSecret string,
) (*Handlers, error) {
	if sessionSecret == "" {
		return nil, fmt.Errorf("session secret must not be empty")
	}

	logTags := log.Fields{"module": "api", "component": "handlers"}

	return &Handlers{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		persistence:   persistence,
		vault:         vault,
		sessionSecret: sessionSecret,
	}, nil
}

type credentialsReq struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Signup register a new user
func (h *Handlers) Signup(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password required"})
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	var user models.User
	dbErr := h.persistence.UseDatabaseInTransaction(
		c.Request().Context(), func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			if user, err = dbClient.CreateUser(dbCtx, req.Email, passwordHash); err != nil {
				return err
			}
			_, err = dbClient.RecordAuditEvent(dbCtx, user.ID, models.AuditActionSignup, nil)
			return err
		},
	)
	if dbErr != nil {
		if errors.Is(dbErr, db.ErrDuplicateEmail) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "registration failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"message": "registered", "id": user.ID})
}

// Login authenticate a user and establish a session
func (h *Handlers) Login(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	var user models.User
	dbErr := h.persistence.UseDatabase(
		c.Request().Context(), func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			user, err = dbClient.GetUserByEmail(dbCtx, strings.TrimSpace(req.Email))
			return err
		},
	)
	if dbErr != nil || !verifyPassword(user.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := newSessionToken(h.sessionSecret, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	c.SetCookie(sessionCookie(token, time.Now().UTC().Add(sessionTTL)))

	if dbErr := h.persistence.UseDatabaseInTransaction(
		c.Request().Context(), func(dbCtx context.Context, dbClient db.Database) error {
			_, err := dbClient.RecordAuditEvent(dbCtx, user.ID, models.AuditActionLogin, nil)
			return err
		},
	); dbErr != nil {
		log.WithError(dbErr).WithFields(h.LogTags).Error("Failed to record login audit event")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "logged in"})
}

// Logout clear the session cookie
func (h *Handlers) Logout(c echo.Context) error {
	c.SetCookie(sessionCookie("", time.Unix(0, 0)))
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Upload accept one file and store it encrypted
func (h *Handlers) Upload(c echo.Context) error {
	logTags := h.GetLogTagsForContext(c.Request().Context())
	user := caller(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no file provided"})
	}
	if fileHeader.Filename == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "empty filename"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable file"})
	}
	defer func() { _ = src.Close() }()
	raw, err := io.ReadAll(src)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable file"})
	}

	var expiryDate *time.Time
	if expiryStr := c.FormValue("expiry_date"); expiryStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", expiryStr, time.UTC)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid expiry date"})
		}
		expiryDate = &parsed
	}

	// A malformed reminder timestamp only drops the reminder, not the upload
	var reminderAt *time.Time
	if reminderStr := c.FormValue("reminder_at"); reminderStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02T15:04", reminderStr, time.Local)
		if err != nil {
			parsed, err = time.ParseInLocation(time.RFC3339, reminderStr, time.Local)
		}
		if err != nil {
			log.WithError(err).WithFields(logTags).
				WithField("reminder_at", reminderStr).
				Warn("Could not parse reminder time, continuing without reminder")
		} else {
			utc := parsed.UTC()
			reminderAt = &utc
		}
	}

	doc, err := h.vault.Upload(c.Request().Context(), store.UploadParams{
		OwnerID:    user.ID,
		Filename:   fileHeader.Filename,
		Category:   c.FormValue("category"),
		Raw:        raw,
		ExpiryDate: expiryDate,
		ReminderAt: reminderAt,
	})
	if err != nil {
		if errors.Is(err, store.ErrExtensionNotAllowed) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid file type"})
		}
		if errors.Is(err, store.ErrEmptyFilename) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "empty filename"})
		}
		log.WithError(err).WithFields(logTags).Error("Document upload failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
	}

	return c.JSON(http.StatusCreated, doc)
}

// Download return the decrypted bytes of one owned document
func (h *Handlers) Download(c echo.Context) error {
	logTags := h.GetLogTagsForContext(c.Request().Context())
	user := caller(c)

	raw, filename, err := h.vault.Download(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		if code, msg, handled := mapVaultError(err); handled {
			return c.JSON(code, echo.Map{"error": msg})
		}
		log.WithError(err).WithFields(logTags).Error("Document download failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "download failed"})
	}

	c.Response().Header().Set(
		echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename),
	)
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, raw)
}

// Delete remove one owned document
func (h *Handlers) Delete(c echo.Context) error {
	logTags := h.GetLogTagsForContext(c.Request().Context())
	user := caller(c)

	if err := h.vault.Delete(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		if code, msg, handled := mapVaultError(err); handled {
			return c.JSON(code, echo.Map{"error": msg})
		}
		log.WithError(err).WithFields(logTags).Error("Document delete failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}

// ListDocuments list the caller's documents
func (h *Handlers) ListDocuments(c echo.Context) error {
	user := caller(c)

	docs, err := h.vault.ListOwned(c.Request().Context(), user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "listing failed"})
	}

	return c.JSON(http.StatusOK, docs)
}

// ListExpiring list the caller's documents expiring soon
func (h *Handlers) ListExpiring(c echo.Context) error {
	user := caller(c)

	days := DefaultExpiryLookaheadDays
	if daysStr := c.QueryParam("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lookahead"})
		}
		days = parsed
	}

	docs, err := h.vault.ListExpiringWithin(c.Request().Context(), user.ID, days)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "listing failed"})
	}

	return c.JSON(http.StatusOK, docs)
}

// ExportSummary return a plain text listing of the caller's documents
func (h *Handlers) ExportSummary(c echo.Context) error {
	user := caller(c)

	summary, err := h.vault.ExportSummary(c.Request().Context(), user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no documents to summarize"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "summary failed"})
	}

	c.Response().Header().Set(
		echo.HeaderContentDisposition, `attachment; filename="file_summary.txt"`,
	)
	return c.String(http.StatusOK, summary)
}

// Healthz liveness probe
func (h *Handlers) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// mapVaultError translate sentinel vault errors into HTTP responses
func mapVaultError(err error) (int, string, bool) {
	switch {
	case errors.Is(err, store.ErrUnauthorized):
		return http.StatusForbidden, "not the document owner", true
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound, "document not found", true
	case errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound, "document data missing", true
	case errors.Is(err, encryption.ErrAuthenticationFailed):
		return http.StatusInternalServerError, "document failed integrity check", true
	}
	return 0, "", false
}
