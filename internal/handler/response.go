// Package handler contains the HTTP controllers of the portal API.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"resource-portal-go/internal/middleware"
	"resource-portal-go/internal/model"
	"resource-portal-go/internal/service"
	"resource-portal-go/pkg/log"
)

var statusByKind = map[service.Kind]int{
	service.KindValidation:   http.StatusBadRequest,
	service.KindNotFound:     http.StatusNotFound,
	service.KindForbidden:    http.StatusForbidden,
	service.KindConflict:     http.StatusConflict,
	service.KindUnauthorized: http.StatusUnauthorized,
	service.KindTooLarge:     http.StatusRequestEntityTooLarge,
	service.KindUpstream:     http.StatusBadGateway,
}

// respondError writes err as {"error": message} with the status of its kind.
func respondError(c *gin.Context, op string, err error) {
	status, ok := statusByKind[service.KindOf(err)]
	if !ok {
		log.Error(op+": unexpected error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if status >= http.StatusInternalServerError {
		log.Error(op, err)
	} else {
		log.Warnf("%s: %v", op, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondBindError reports a request body that failed binding or validation.
func respondBindError(c *gin.Context, op string, err error) {
	log.Warnf("%s: invalid request payload, error: %v", op, err)
	c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request payload"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

// currentUser returns the authenticated caller. Routes using it sit behind AuthMiddleware.
func currentUser(c *gin.Context) *model.User {
	user, _ := middleware.CurrentUser(c)
	return user
}
