package routes

import (
	"fmt"
	"net/http"

	"finco/conversions/common"
	"finco/conversions/errors"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// fidBody is the minimum every trade-surface request must carry.
type fidBody struct {
	Fid string `json:"fid" binding:"required"`
}

// HandleAsUserRequest validates that the body names a user and that it
// matches the fid header when the client sends one.
func HandleAsUserRequest(f func(c *gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		headerFid := c.Request.Header.Get("fid")

		var body fidBody
		err := c.ShouldBindBodyWith(&body, binding.JSON)
		if err != nil {
			common.WriteErrorResponse(http.StatusBadRequest, fmt.Sprintf("%s", errors.BuildAndLogErrorMsg(errors.DecodeBodyError, err)), c.Writer)
			return
		}

		if headerFid != "" && headerFid != body.Fid {
			common.WriteErrorResponse(http.StatusBadRequest, fmt.Sprintf("%s", errors.BuildAndLogErrorMsg(errors.ClientUserIdEror, err)), c.Writer)
			return
		}

		f(c)
	}
}

// HandleAsUserParam validates the fid path parameter before dispatch.
func HandleAsUserParam(f func(c *gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("fid") == "" {
			common.WriteErrorResponse(http.StatusBadRequest, errors.MissingFieldError, c.Writer)
			return
		}

		f(c)
	}
}

func HandlerWrap(f func(c *gin.Context)) gin.HandlerFunc {

	return func(c *gin.Context) {
		f(c)
	}
}
