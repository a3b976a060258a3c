package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"epictech-chat/archive"
	"epictech-chat/chat"
	"epictech-chat/db"
	"epictech-chat/utils"
)

// Response is the envelope of every JSON reply.
// Code is 0 on success and the HTTP status otherwise.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes a 200 response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created writes a 201 response
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Fail writes an error response
func Fail(c *gin.Context, httpCode int, message string) {
	c.AbortWithStatusJSON(httpCode, Response{
		Code:    httpCode,
		Message: message,
	})
}

// BadRequest writes a 400 response
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message)
}

// NotFound writes a 404 response
func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, message)
}

// statusFor maps an error to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, archive.ErrInvalidFormat),
		errors.Is(err, db.ErrInvalidSender),
		errors.Is(err, db.ErrInvalidRecord),
		errors.Is(err, chat.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, db.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error writes the response for err and records it on the context for the request logger
func Error(c *gin.Context, err error) {
	c.Error(err)
	Fail(c, statusFor(err), err.Error())
}
