package controllers

import (
	"errors"
	"net/http"

	"craft-keeper/internal/errs"
	"craft-keeper/internal/models"

	"github.com/gin-gonic/gin"
)

// statusOf maps an error code to the HTTP status of its response.
func statusOf(code errs.Code) int {
	switch code {
	case errs.CodeInvalidInput, errs.CodeDescriptorParse, errs.CodeCyclicInheritance,
		errs.CodePlanConflict, errs.CodeMissingSubstitution:
		return http.StatusBadRequest
	case errs.CodeNotFound, errs.CodeDescriptorNotFound:
		return http.StatusNotFound
	case errs.CodeTransportFailure, errs.CodeChecksumMismatch, errs.CodeIncompleteDownload:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

/**
 * Write an error response
 * @param {*gin.Context} g - Request context
 * @param {error} err - Error returned by the services
 * @description
 * - Body is models.ErrorResponse, identifiers are filled when the error carries them
 * - Errors without a code are reported as INTERNAL with status 500
 */
func respondError(g *gin.Context, err error) {
	body := models.ErrorResponse{Message: err.Error()}
	var e *errs.Error
	if errors.As(err, &e) {
		body.VersionID = e.VersionID
		body.Artifact = e.Artifact
		body.Path = e.Path
		body.Placeholder = e.Placeholder
	}
	code := errs.CodeOf(err)
	if code == "" {
		body.Code = "INTERNAL"
		g.JSON(http.StatusInternalServerError, body)
		return
	}
	body.Code = string(code)
	g.JSON(statusOf(code), body)
}
