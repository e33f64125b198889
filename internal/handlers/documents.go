package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/assemblydb/internal/middleware"
	"github.com/localnerve/assemblydb/internal/services"
	"github.com/localnerve/assemblydb/internal/types"
	"github.com/localnerve/assemblydb/internal/utils"
)

// DocumentHandler handles motion and assignment routes
type DocumentHandler struct {
	Lifecycle *services.Lifecycle
}

// CreateDocumentRequest is the body of POST /documents
type CreateDocumentRequest struct {
	Kind       string                 `json:"kind"`
	Title      string                 `json:"title"`
	Text       string                 `json:"text"`
	Reason     string                 `json:"reason"`
	WorkflowID *types.FlexUint64      `json:"workflow_id"`
	CategoryID *types.FlexUint64      `json:"category_id"`
	Submitters types.FlexList[string] `json:"submitters"`
	OpenPosts  int                    `json:"open_posts"`
	Identifier *string                `json:"identifier"`
}

// VersionRequest is the body of POST /documents/{id}/versions
type VersionRequest struct {
	RevisionGuard
	Title  string `json:"title"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// QuorumResponse reports the support quorum of a document
type QuorumResponse struct {
	DocumentID        uint64 `json:"document_id"`
	EnoughSupporters  bool   `json:"enough_supporters"`
	MinimumSupporters int    `json:"minimum_supporters"`
}

// respondMutation answers a document mutation with the new revision
func (h *DocumentHandler) respondMutation(c *fiber.Ctx, id uint64, operation string) error {
	doc, err := h.Lifecycle.GetDocument(c.UserContext(), id)
	if err != nil {
		return utils.CoreErrorResponse(c, err, operation)
	}
	return utils.MutationSuccessResponse(c, doc.Revision, 1)
}

// ListDocuments handles GET /api/documents?kind=
// @Summary List documents
// @Description List motions and assignments, optionally of one kind
// @Tags Documents
// @Produce json
// @Param kind query string false "motion or assignment"
// @Success 200 {array} models.Document
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /documents [get]
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	docs, err := h.Lifecycle.ListDocuments(c.UserContext(), c.Query("kind"))
	if err != nil {
		return utils.CoreErrorResponse(c, err, "listDocuments")
	}
	return c.Status(fiber.StatusOK).JSON(docs)
}

// CreateDocument handles POST /api/documents
// @Summary Create a document
// @Description Create a motion or assignment in the first state of its workflow
// @Tags Documents
// @Accept json
// @Produce json
// @Param body body CreateDocumentRequest true "Document"
// @Success 201 {object} models.Document
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents [post]
func (h *DocumentHandler) CreateDocument(c *fiber.Ctx) error {
	var body CreateDocumentRequest
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "createDocument")
	}

	doc, err := h.Lifecycle.CreateDocument(c.UserContext(), services.CreateDocumentInput{
		Kind:       body.Kind,
		Title:      body.Title,
		Text:       body.Text,
		Reason:     body.Reason,
		WorkflowID: flexPtr(body.WorkflowID),
		CategoryID: flexPtr(body.CategoryID),
		Submitters: body.Submitters.Slice(),
		OpenPosts:  body.OpenPosts,
		Identifier: body.Identifier,
	}, middleware.ActorFrom(c))
	if err != nil {
		return utils.CoreErrorResponse(c, err, "createDocument")
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// GetDocument handles GET /api/documents/:id
// @Summary Get a document
// @Description Get a document with its versions, submitters, supporters, candidates and polls
// @Tags Documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "getDocument")
	}
	doc, err := h.Lifecycle.GetDocument(c.UserContext(), id)
	if err != nil {
		return utils.CoreErrorResponse(c, err, "getDocument")
	}
	return c.Status(fiber.StatusOK).JSON(doc)
}

// DeleteDocument handles DELETE /api/documents/:id
// @Summary Delete a document
// @Description Delete a document with everything it owns
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body RevisionGuard false "Revision check"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "deleteDocument")
	}
	var body RevisionGuard
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "deleteDocument")
	}
	if err := h.Lifecycle.DeleteDocument(c.UserContext(), id, body.expected(), middleware.ActorFrom(c)); err != nil {
		return utils.CoreErrorResponse(c, err, "deleteDocument")
	}
	return utils.MutationSuccessResponse(c, 0, 1)
}

// AllowedActions handles GET /api/documents/:id/actions
// @Summary Allowed actions
// @Description List what the requesting actor may do with the document now
// @Tags Documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {array} string
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/actions [get]
func (h *DocumentHandler) AllowedActions(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "allowedActions")
	}
	actions, err := h.Lifecycle.AllowedActions(c.UserContext(), id, middleware.ActorFrom(c))
	if err != nil {
		return utils.CoreErrorResponse(c, err, "allowedActions")
	}
	if actions == nil {
		actions = []string{}
	}
	return c.Status(fiber.StatusOK).JSON(actions)
}

// Quorum handles GET /api/documents/:id/quorum
// @Summary Support quorum
// @Description Report whether a document has enough supporters to leave its state
// @Tags Documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} QuorumResponse
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /documents/{id}/quorum [get]
func (h *DocumentHandler) Quorum(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "quorum")
	}
	enough, err := h.Lifecycle.EnoughSupporters(c.UserContext(), id)
	if err != nil {
		return utils.CoreErrorResponse(c, err, "quorum")
	}
	return c.Status(fiber.StatusOK).JSON(QuorumResponse{
		DocumentID:        id,
		EnoughSupporters:  enough,
		MinimumSupporters: h.Lifecycle.MinSupporters(),
	})
}

// AuditLog handles GET /api/documents/:id/audit
// @Summary Document history
// @Description Audit entries of a document, oldest first
// @Tags Documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {array} models.AuditEntry
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/audit [get]
func (h *DocumentHandler) AuditLog(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "auditLog")
	}
	entries, err := h.Lifecycle.AuditLog(c.UserContext(), id, middleware.ActorFrom(c))
	if err != nil {
		return utils.CoreErrorResponse(c, err, "auditLog")
	}
	return c.Status(fiber.StatusOK).JSON(entries)
}

// CreateVersion handles POST /api/documents/:id/versions
// @Summary Edit a document
// @Description Record new text; appended as a version or updated in place depending on the state
// @Tags Versions
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body VersionRequest true "Version"
// @Success 200 {object} models.Version
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/versions [post]
func (h *DocumentHandler) CreateVersion(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, "createVersion")
	}
	var body VersionRequest
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, "createVersion")
	}
	v, err := h.Lifecycle.CreateVersion(c.UserContext(), id, services.VersionInput{
		Title:  body.Title,
		Text:   body.Text,
		Reason: body.Reason,
	}, body.expected(), middleware.ActorFrom(c))
	if err != nil {
		return utils.CoreErrorResponse(c, err, "createVersion")
	}
	return c.Status(fiber.StatusOK).JSON(v)
}

// PermitVersion handles POST /api/documents/:id/versions/:number/permit
// @Summary Permit a version
// @Description Pin a version as the active version
// @Tags Versions
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param number path int true "Version number"
// @Param body body RevisionGuard false "Revision check"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/versions/{number}/permit [post]
func (h *DocumentHandler) PermitVersion(c *fiber.Ctx) error {
	return h.versionAction(c, "permitVersion", h.Lifecycle.PermitVersion)
}

// RejectVersion handles POST /api/documents/:id/versions/:number/reject
// @Summary Reject a version
// @Description Mark a version that is not active as rejected
// @Tags Versions
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param number path int true "Version number"
// @Param body body RevisionGuard false "Revision check"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /documents/{id}/versions/{number}/reject [post]
func (h *DocumentHandler) RejectVersion(c *fiber.Ctx) error {
	return h.versionAction(c, "rejectVersion", h.Lifecycle.RejectVersion)
}

type versionOp func(ctx context.Context, documentID uint64, number int, expected *uint64, actor services.Actor) error

func (h *DocumentHandler) versionAction(c *fiber.Ctx, operation string, op versionOp) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.CoreErrorResponse(c, err, operation)
	}
	number, err := paramID(c, "number")
	if err != nil {
		return utils.CoreErrorResponse(c, err, operation)
	}
	var body RevisionGuard
	if err := parseBody(c, &body); err != nil {
		return utils.CoreErrorResponse(c, err, operation)
	}
	if err := op(c.UserContext(), id, int(number), body.expected(), middleware.ActorFrom(c)); err != nil {
		return utils.CoreErrorResponse(c, err, operation)
	}
	return h.respondMutation(c, id, operation)
}
