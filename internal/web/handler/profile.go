package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jmerrifield20/linkaday/internal/export"
	"github.com/jmerrifield20/linkaday/internal/identity"
	"github.com/jmerrifield20/linkaday/internal/profiledoc"
	"github.com/jmerrifield20/linkaday/internal/profiles"
)

// profileExporter is satisfied by *export.Exporter.
type profileExporter interface {
	Export(ctx context.Context, p *profiles.Profile) error
}

// ProfileHandler serves the profile editing API.
type ProfileHandler struct {
	store    profiles.Store
	exporter profileExporter
	validate *validator.Validate
	logger   *zap.Logger
}

// NewProfileHandler creates a ProfileHandler. exporter may be nil to disable
// the export route.
func NewProfileHandler(store profiles.Store, exporter profileExporter, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		store:    store,
		exporter: exporter,
		validate: validator.New(),
		logger:   logger,
	}
}

// Register mounts the profile routes. rg must already require a session.
func (h *ProfileHandler) Register(rg *gin.RouterGroup) {
	p := rg.Group("/profile")
	{
		p.GET("", h.Get)
		p.POST("/save", h.Save)
		p.POST("/update", h.Update)
		p.POST("/update-full", h.UpdateFull)
		p.PATCH("/sections/:section", h.MergeSection)
		p.POST("/sections/:section/:field", h.AppendItem)
		p.DELETE("/sections/:section/:field/:index", h.RemoveItem)
		if h.exporter != nil {
			p.POST("/export-n8n", h.Export)
		}
	}
}

// Get handles GET /profile returns the caller's record and completion.
func (h *ProfileHandler) Get(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"profile":    p,
		"completion": profiledoc.CompletionPercentage(p.ProfileJSON),
	})
}

// Save handles POST /profile/save. It replaces the whole profile document and
// marks onboarding as completed.
func (h *ProfileHandler) Save(c *gin.Context) {
	fields, ok := readJSONObject(c)
	if !ok {
		return
	}
	raw, present := fields["profile_json"]
	if !present {
		fail(c, http.StatusBadRequest, "profile_json is required")
		return
	}
	doc, err := profiledoc.Parse(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, "profile_json must be a JSON object of section objects")
		return
	}
	if err := profiledoc.Validate(doc); err != nil {
		failValidation(c, err)
		return
	}

	completed := true
	if !h.write(c, &profiles.Update{ProfileJSON: doc, OnboardingCompleted: &completed}) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Update handles POST /profile/update for the onboarding documents and flag.
func (h *ProfileHandler) Update(c *gin.Context) {
	fields, ok := readJSONObject(c)
	if !ok {
		return
	}
	var u profiles.Update
	if !h.decodeInto(c, fields, &u, "directive_json", "onboarding_json", "onboarding_completed") {
		return
	}
	if u.IsEmpty() {
		fail(c, http.StatusBadRequest, "at least one of directive_json, onboarding_json or onboarding_completed is required")
		return
	}
	if !h.write(c, &u) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// UpdateFull handles POST /profile/update-full, covering every user-editable column.
func (h *ProfileHandler) UpdateFull(c *gin.Context) {
	fields, ok := readJSONObject(c)
	if !ok {
		return
	}
	var u profiles.Update
	if !h.decodeInto(c, fields, &u,
		"contact_email", "job_title", "industry", "seniority", "tone",
		"focus", "stack_context", "audience_target",
		"directive_json", "personal_json", "onboarding_json", "onboarding_completed",
	) {
		return
	}
	if u.IsEmpty() {
		fail(c, http.StatusBadRequest, "no updatable fields provided")
		return
	}
	if !h.write(c, &u) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// MergeSection handles PATCH /profile/sections/:section.
func (h *ProfileHandler) MergeSection(c *gin.Context) {
	section := c.Param("section")
	fields, ok := readJSONObject(c)
	if !ok {
		return
	}
	updates := make(map[string]any, len(fields))
	for k, raw := range fields {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			fail(c, http.StatusBadRequest, "invalid value for "+k)
			return
		}
		updates[k] = v
	}
	h.editDocument(c, section, func(d profiledoc.Document) (profiledoc.Document, error) {
		return profiledoc.MergeSection(d, section, updates)
	})
}

// AppendItem handles POST /profile/sections/:section/:field with {"value": "..."}.
func (h *ProfileHandler) AppendItem(c *gin.Context) {
	section, field := c.Param("section"), c.Param("field")
	fields, ok := readJSONObject(c)
	if !ok {
		return
	}
	raw, present := fields["value"]
	if !present {
		fail(c, http.StatusBadRequest, "value is required")
		return
	}
	value, err := decodeString(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, "value "+err.Error())
		return
	}
	h.editDocument(c, section, func(d profiledoc.Document) (profiledoc.Document, error) {
		return profiledoc.AppendArrayField(d, section, field, value)
	})
}

// RemoveItem handles DELETE /profile/sections/:section/:field/:index.
func (h *ProfileHandler) RemoveItem(c *gin.Context) {
	section, field := c.Param("section"), c.Param("field")
	index, err := strconv.Atoi(c.Param("index"))
	if errors.Is(err, strconv.ErrRange) {
		// Beyond any list length; removing it changes nothing.
		index = -1
	} else if err != nil {
		fail(c, http.StatusBadRequest, "index must be an integer")
		return
	}
	h.editDocument(c, section, func(d profiledoc.Document) (profiledoc.Document, error) {
		return profiledoc.RemoveArrayField(d, section, field, index)
	})
}

// Export handles POST /profile/export-n8n.
func (h *ProfileHandler) Export(c *gin.Context) {
	p, ok := loadStored(c, h.store, h.logger)
	if !ok {
		return
	}

	err := h.exporter.Export(c.Request.Context(), p)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true, "message": "profile exported"})
	case errors.Is(err, export.ErrNoProfileData):
		fail(c, http.StatusBadRequest, "profile has no data to export")
	case errors.Is(err, export.ErrNotConfigured):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{
			Error:   "export is not configured",
			Message: "set LINKADAY_EXPORT_WEBHOOK_URL to enable profile export",
		})
	default:
		h.logger.Error("export profile", zap.String("user_id", p.ID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "failed to export profile")
	}
}

// editDocument loads the caller's document, applies op, validates the touched
// section and writes the whole document back.
func (h *ProfileHandler) editDocument(c *gin.Context, section string, op func(profiledoc.Document) (profiledoc.Document, error)) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	doc, err := op(p.ProfileJSON)
	if err != nil {
		switch {
		case errors.Is(err, profiledoc.ErrInvalidSection):
			fail(c, http.StatusBadRequest, "unknown section "+strconv.Quote(section))
		case errors.Is(err, profiledoc.ErrFieldKind):
			fail(c, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("edit profile document", zap.Error(err))
			fail(c, http.StatusInternalServerError, "failed to update profile")
		}
		return
	}
	if err := profiledoc.Validate(profiledoc.Document{section: doc[section]}); err != nil {
		failValidation(c, err)
		return
	}
	if !h.write(c, &profiles.Update{ProfileJSON: doc}) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"profile_json": doc,
		"completion":   profiledoc.CompletionPercentage(doc),
	})
}

// decodeInto copies the allowed fields present in the body onto u.
func (h *ProfileHandler) decodeInto(c *gin.Context, fields map[string]json.RawMessage, u *profiles.Update, allowed ...string) bool {
	for _, name := range allowed {
		raw, present := fields[name]
		if !present {
			continue
		}
		if err := h.decodeField(name, raw, u); err != nil {
			fail(c, http.StatusBadRequest, name+" "+err.Error())
			return false
		}
	}
	return true
}

func (h *ProfileHandler) decodeField(name string, raw json.RawMessage, u *profiles.Update) error {
	var err error
	switch name {
	case "directive_json":
		u.DirectiveJSON, err = decodeObject(raw)
	case "onboarding_json":
		u.OnboardingJSON, err = decodeObject(raw)
	case "personal_json":
		u.PersonalJSON, err = decodeObject(raw)
	case "onboarding_completed":
		var b bool
		if b, err = decodeBool(raw); err == nil {
			u.OnboardingCompleted = &b
		}
	case "contact_email":
		var s string
		if s, err = decodeString(raw); err == nil {
			s = strings.TrimSpace(s)
			if s != "" && h.validate.Var(s, "email") != nil {
				return errors.New("must be a valid email address")
			}
			u.ContactEmail = &s
		}
	case "job_title":
		u.JobTitle, err = decodeStringPtr(raw)
	case "industry":
		u.Industry, err = decodeStringPtr(raw)
	case "seniority":
		u.Seniority, err = decodeStringPtr(raw)
	case "tone":
		u.Tone, err = decodeStringPtr(raw)
	case "focus":
		u.Focus, err = decodeStringList(raw)
	case "stack_context":
		u.StackContext, err = decodeStringList(raw)
	case "audience_target":
		u.AudienceTarget, err = decodeStringList(raw)
	}
	return err
}

func decodeStringPtr(raw json.RawMessage) (*string, error) {
	s, err := decodeString(raw)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// load fetches the caller's own profile, writing the error response on failure.
func (h *ProfileHandler) load(c *gin.Context) (*profiles.Profile, bool) {
	return loadProfile(c, h.store, h.logger)
}

// write applies u to the caller's profile, writing the error response on failure.
func (h *ProfileHandler) write(c *gin.Context, u *profiles.Update) bool {
	id, ok := identity.FromContext(c.Request.Context())
	if !ok {
		fail(c, http.StatusUnauthorized, "authentication required")
		return false
	}
	if err := h.store.Update(c.Request.Context(), id.ID, u); err != nil {
		storeFailure(c, h.logger, "update profile", err)
		return false
	}
	return true
}

// loadProfile is loadStored with the document normalized.
func loadProfile(c *gin.Context, store profiles.Store, logger *zap.Logger) (*profiles.Profile, bool) {
	p, ok := loadStored(c, store, logger)
	if !ok {
		return nil, false
	}
	if p.ProfileJSON == nil {
		p.ProfileJSON = profiledoc.Default()
	} else {
		p.ProfileJSON = profiledoc.Normalize(p.ProfileJSON)
	}
	return p, true
}

// loadStored returns the caller's profile exactly as persisted.
func loadStored(c *gin.Context, store profiles.Store, logger *zap.Logger) (*profiles.Profile, bool) {
	id, ok := identity.FromContext(c.Request.Context())
	if !ok {
		fail(c, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	p, err := store.Get(c.Request.Context(), id.ID)
	if err != nil {
		storeFailure(c, logger, "load profile", err)
		return nil, false
	}
	return p, true
}

func storeFailure(c *gin.Context, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, profiles.ErrNotFound):
		fail(c, http.StatusNotFound, "profile not found")
	case errors.Is(err, profiles.ErrUnauthenticated):
		fail(c, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, profiles.ErrForbidden):
		fail(c, http.StatusForbidden, "not allowed to modify this profile")
	default:
		logger.Error(op, zap.Error(err))
		fail(c, http.StatusInternalServerError, "failed to "+op)
	}
}
