package errors

import "errors"

// Authorization errors. Always recoverable: returned to the caller as a
// typed failure, never escalated past the component boundary.
var (
	ErrNotMember        = errors.New("not a member of this conversation")
	ErrNotOwner         = errors.New("not an owner of this conversation")
	ErrNotSender        = errors.New("only the original sender may do this")
	ErrCannotKickOwner  = errors.New("cannot kick an owner")
	ErrOwnerCannotLeave = errors.New("an owner cannot leave the conversation")
)

// Validation errors.
var (
	ErrEmptyMessage       = errors.New("message content and attachments are both empty")
	ErrEmptyMembers       = errors.New("a group needs at least one member besides the owner")
	ErrSelfConversation   = errors.New("cannot create a private conversation with yourself")
	ErrInvalidReplyTarget = errors.New("reply target does not belong to this conversation")
	ErrNoChange           = errors.New("content is unchanged")
	ErrInvalidReaction    = errors.New("unknown reaction kind")
	ErrNotGroupOrChannel  = errors.New("conversation is not a group or channel")
)

// State errors.
var (
	ErrMessageDeleted = errors.New("message has been deleted")
	ErrAlreadyDeleted = errors.New("message is already deleted")
	ErrNoReaction     = errors.New("no reaction from this member on this message")
)

// Not-found errors.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrMemberNotFound       = errors.New("member not found in this conversation")
)

// Auth errors.
var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

var codes = map[error]string{
	ErrNotMember:            "NOT_MEMBER",
	ErrNotOwner:             "NOT_OWNER",
	ErrNotSender:            "NOT_SENDER",
	ErrCannotKickOwner:      "CANNOT_KICK_OWNER",
	ErrOwnerCannotLeave:     "OWNER_CANNOT_LEAVE",
	ErrEmptyMessage:         "EMPTY_MESSAGE",
	ErrEmptyMembers:         "EMPTY_MEMBERS",
	ErrSelfConversation:     "SELF_CONVERSATION",
	ErrInvalidReplyTarget:   "INVALID_REPLY_TARGET",
	ErrNoChange:             "NO_CHANGE",
	ErrInvalidReaction:      "INVALID_REACTION",
	ErrNotGroupOrChannel:    "NOT_GROUP_OR_CHANNEL",
	ErrMessageDeleted:       "MESSAGE_DELETED",
	ErrAlreadyDeleted:       "ALREADY_DELETED",
	ErrNoReaction:           "NO_REACTION",
	ErrConversationNotFound: "CONVERSATION_NOT_FOUND",
	ErrMessageNotFound:      "MESSAGE_NOT_FOUND",
	ErrMemberNotFound:       "MEMBER_NOT_FOUND",
	ErrInvalidToken:         "UNAUTHORIZED",
}

// Code returns the stable wire code for a typed failure, shared by REST
// responses and websocket error acks. Unknown errors map to INTERNAL.
func Code(err error) string {
	for sentinel, code := range codes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return "INTERNAL"
}

// Expected reports whether err is one of the typed failures above, as
// opposed to a storage or transport fault.
func Expected(err error) bool {
	for sentinel := range codes {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// Is re-exports the stdlib matcher so callers importing this package do
// not also need the standard errors package.
func Is(err, target error) bool { return errors.Is(err, target) }
