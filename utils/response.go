package utils

import (
	"github.com/gin-gonic/gin"
)

// Envelope is the shape of every JSON response body.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// Paged wraps list results with their paging metadata.
type Paged struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func OK(c *gin.Context, data interface{}) {
	Respond(c, 200, data)
}

func Respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Message: message})
}

func FailCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, Envelope{Success: false, Message: message, Code: code})
}

// Abort is Fail for middleware: it stops the handler chain.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: message})
}
