package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
	"github.com/yungbote/skillgraph-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	// Applied and Index are set for an aborted rebuild.
	Applied *int `json:"applied,omitempty"`
	Index   *int `json:"index,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	apiErr := APIError{
		Message: msg,
		Code:    code,
	}
	var re *types.RebuildError
	if errors.As(err, &re) && re != nil {
		applied, index := re.Applied, re.Index
		apiErr.Applied = &applied
		apiErr.Index = &index
	}
	c.JSON(status, ErrorEnvelope{Error: apiErr})
}

// RespondErr maps err through apierr and writes the error envelope.
func RespondErr(c *gin.Context, err error) {
	ae := apierr.FromError(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, "internal", nil)
	}
	RespondError(c, ae.Status, ae.Code, ae)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
