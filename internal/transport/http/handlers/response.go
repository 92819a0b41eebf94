package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/ourchat/internal/service"
	"github.com/vedran77/ourchat/pkg/validator"
)

type apiError struct {
	status int
	code   string
}

// serviceErrors maps each service sentinel to its status and code. The
// sentinel's text is the message.
var serviceErrors = []struct {
	err error
	apiError
}{
	{service.ErrDuplicateRequest, apiError{http.StatusConflict, "DUPLICATE_REQUEST"}},
	{service.ErrRequestNotFound, apiError{http.StatusNotFound, "REQUEST_NOT_FOUND"}},
	{service.ErrNotAuthorized, apiError{http.StatusForbidden, "NOT_AUTHORIZED"}},
	{service.ErrAlreadyConnected, apiError{http.StatusConflict, "ALREADY_CONNECTED"}},
	{service.ErrNotAGroupChat, apiError{http.StatusBadRequest, "NOT_A_GROUP_CHAT"}},
	{service.ErrLastMemberViolation, apiError{http.StatusConflict, "LAST_MEMBER"}},
	{service.ErrTransactionConflict, apiError{http.StatusServiceUnavailable, "TRY_AGAIN"}},
	{service.ErrCannotRequestSelf, apiError{http.StatusBadRequest, "CANNOT_REQUEST_SELF"}},
	{service.ErrUserNotFound, apiError{http.StatusNotFound, "USER_NOT_FOUND"}},
	{service.ErrNotRequestSender, apiError{http.StatusForbidden, "NOT_REQUEST_SENDER"}},
	{service.ErrChatNotFound, apiError{http.StatusNotFound, "CHAT_NOT_FOUND"}},
	{service.ErrNotAMember, apiError{http.StatusBadRequest, "NOT_A_MEMBER"}},
	{service.ErrGroupTooSmall, apiError{http.StatusBadRequest, "GROUP_TOO_SMALL"}},
	{service.ErrGroupFull, apiError{http.StatusBadRequest, "GROUP_FULL"}},
	{service.ErrUsernameTaken, apiError{http.StatusConflict, "USERNAME_TAKEN"}},
	{service.ErrInvalidCreds, apiError{http.StatusUnauthorized, "INVALID_CREDENTIALS"}},
}

// writeServiceError answers with the mapped error, or logs it and answers
// 500 when it is not a known sentinel.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	for _, se := range serviceErrors {
		if errors.Is(err, se.err) {
			writeError(w, se.status, se.code, se.err.Error())
			return
		}
	}
	log.Error(op+" failed", slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}

// decode reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler should go on.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	if errs := validator.Struct(v); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid "+what+" ID")
		return uuid.Nil, false
	}
	return id, true
}
