package common

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// CORSMiddleware to apply server middleware for CORS
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func WriteErrorResponse(statusCode int, message string, w http.ResponseWriter) {
	log.Error(message)
	errorResponse := ApiError{
		Status: false,
		Err: ErrorDetails{
			Type:    http.StatusText(statusCode),
			Message: message,
		},
	}
	respJson, errRespJson := json.Marshal(errorResponse)
	if errRespJson != nil {
		WriteRawResponse(http.StatusInternalServerError, []byte(errRespJson.Error()), w)
		return
	}

	WriteCustomResponse(statusCode, respJson, w)
}

// to write custom response to the request
func WriteCustomResponse(code int, res []byte, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	WriteRawResponse(code, res, w)
}

func WriteResponse(code int, res interface{}, w http.ResponseWriter) {
	if res == nil {
		w.Header().Set("Content-Type", "application/json")
		WriteRawResponse(code, []byte{}, w)
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Marshal JSON response failed, error=%q\n", err.Error())
	} else {
		w.Header().Set("Content-Type", "application/json")
		WriteRawResponse(code, b, w)
	}
}

func WriteRawResponse(code int, res []byte, w http.ResponseWriter) {
	w.WriteHeader(code)
	w.Write(res)
}
