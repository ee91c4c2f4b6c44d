package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Body struct {
	Code      int         `json:"code"`
	Data      interface{} `json:"data"`
	Msg       string      `json:"msg"`
	Retryable bool        `json:"retryable,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data, "")
}

func SuccessWithMsg(c *gin.Context, data interface{}, msg string) {
	JSON(c, http.StatusOK, data, msg)
}

func Error(c *gin.Context, status int, msg string) {
	JSON(c, status, gin.H{}, msg)
}

// RetryableError is Error with the retryable hint set, used for transient store failures.
func RetryableError(c *gin.Context, status int, msg string) {
	c.JSON(status, Body{
		Code:      status,
		Data:      gin.H{},
		Msg:       msg,
		Retryable: true,
	})
}

func JSON(c *gin.Context, status int, data interface{}, msg string) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, Body{
		Code: status,
		Data: data,
		Msg:  msg,
	})
}
