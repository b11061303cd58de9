package utils

import (
	"net/http"

	chaterr "github.com/Instant-Chat-App/InstantChat-Server/errors"
	"github.com/gin-gonic/gin"
)

// RespondSuccess writes the success envelope shared by every REST
// endpoint.
func RespondSuccess(c *gin.Context, data interface{}, message *string) {
	body := gin.H{"success": true, "data": data}
	if message != nil {
		body["message"] = *message
	}
	c.JSON(http.StatusOK, body)
}

// RespondError maps a typed failure onto its HTTP status and stable
// wire code. Unexpected faults become a masked 500.
func RespondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"success": false,
		"code":    chaterr.Code(err),
		"error":   safeMessage(err),
	})
}

func statusFor(err error) int {
	switch {
	case chaterr.Is(err, chaterr.ErrNotMember),
		chaterr.Is(err, chaterr.ErrNotOwner),
		chaterr.Is(err, chaterr.ErrNotSender),
		chaterr.Is(err, chaterr.ErrCannotKickOwner),
		chaterr.Is(err, chaterr.ErrOwnerCannotLeave):
		return http.StatusForbidden
	case chaterr.Is(err, chaterr.ErrConversationNotFound),
		chaterr.Is(err, chaterr.ErrMessageNotFound),
		chaterr.Is(err, chaterr.ErrMemberNotFound):
		return http.StatusNotFound
	case chaterr.Is(err, chaterr.ErrMessageDeleted),
		chaterr.Is(err, chaterr.ErrAlreadyDeleted),
		chaterr.Is(err, chaterr.ErrNoReaction):
		return http.StatusConflict
	case chaterr.Is(err, chaterr.ErrInvalidToken):
		return http.StatusUnauthorized
	case chaterr.Expected(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func safeMessage(err error) string {
	if chaterr.Expected(err) {
		return err.Error()
	}
	return "internal error"
}
