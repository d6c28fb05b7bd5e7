// Package httputils provides HTTP utility functions.
package httputils

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/rag-agent/pkg/utils/errors"
	"github.com/kart-io/rag-agent/pkg/utils/response"
)

// WriteResponse writes the response to the client.
// It handles both success and error cases, ensuring consistent response format.
func WriteResponse(c *gin.Context, err error, data interface{}) {
	if err != nil {
		resp := response.Err(errors.FromError(err))
		c.JSON(resp.HTTPStatus(), resp)
		return
	}

	// data can be *response.Response (e.g. from response.Page) or raw data
	if resp, ok := data.(*response.Response); ok {
		c.JSON(resp.HTTPStatus(), resp)
		return
	}

	resp := response.Success(data)
	c.JSON(resp.HTTPStatus(), resp)
}
