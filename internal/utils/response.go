package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/assemblydb/internal/types"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// VersionErrorResponse sends a revision conflict error (409)
func VersionErrorResponse(c *fiber.Ctx, current any) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"status":       fiber.StatusConflict,
		"message":      "E_VERSION - Refresh and reconcile with current version and retry.",
		"ok":           false,
		"versionError": true,
		"value":        current,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"url":          c.OriginalURL(),
		"type":         string(types.KindConflict),
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      string(types.KindNotFound),
	})
}

// MutationSuccessResponse sends a success response for mutations
func MutationSuccessResponse(c *fiber.Ctx, newVersion uint64, affectedRows int64) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":      "Success",
		"ok":           true,
		"newVersion":   fmt.Sprintf("%d", newVersion),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"affectedRows": affectedRows,
	})
}

// StatusForKind maps a core error kind onto an HTTP status
func StatusForKind(kind types.ErrorKind) int {
	switch kind {
	case types.KindInvalidInput,
		types.KindInvalidVoteData,
		types.KindInconsistentTotals,
		types.KindNotSupporting,
		types.KindAlreadySupporting,
		types.KindSelfSupportForbidden,
		types.KindNoCandidates:
		return fiber.StatusBadRequest
	case types.KindForbidden, types.KindNotPublished:
		return fiber.StatusForbidden
	case types.KindNotFound:
		return fiber.StatusNotFound
	case types.KindConflict, types.KindAlreadyAssigned, types.KindDuplicateIdentifier:
		return fiber.StatusConflict
	case types.KindInvalidTransition:
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// CoreErrorResponse renders err. Core errors keep their kind and value,
// anything else is an internal error typed by operation.
func CoreErrorResponse(c *fiber.Ctx, err error, operation string) error {
	var ce *types.CoreError
	if !errors.As(err, &ce) {
		return ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, operation)
	}
	if ce.Kind == types.KindConflict {
		return VersionErrorResponse(c, ce.Value)
	}

	status := StatusForKind(ce.Kind)
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   ce.Message,
		"ok":        false,
		"value":     ce.Value,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      string(ce.Kind),
	})
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status       int    `json:"status"`
	Message      string `json:"message"`
	Ok           bool   `json:"ok"`
	Timestamp    string `json:"timestamp"`
	URL          string `json:"url"`
	Type         string `json:"type,omitempty"`
	Value        any    `json:"value,omitempty"`
	VersionError bool   `json:"versionError,omitempty"`
}

// SuccessResponseStruct defines the schema for mutation success responses
type SuccessResponseStruct struct {
	Message      string `json:"message"`
	Ok           bool   `json:"ok"`
	NewVersion   string `json:"newVersion"`
	Timestamp    string `json:"timestamp"`
	AffectedRows int64  `json:"affectedRows"`
}
