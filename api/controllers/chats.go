package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/univend-backend/api/middleware"
	"github.com/angelmondragon/univend-backend/api/responses"
	"github.com/angelmondragon/univend-backend/api/validators"
	"github.com/angelmondragon/univend-backend/internal/chat"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/logger"
)

type openChatRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
}

type sendChatMessageRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

// OpenChat starts, or returns, the caller's conversation with the vendor of a
// listing. A new chat answers 201, an existing one 200.
func OpenChat(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("chat"))
			return
		}
		caller, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			fail(err)
			return
		}
		var payload openChatRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			fail(err)
			return
		}
		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}
		conversation, created, err := svc.Open(r.Context(), caller, productID)
		if err != nil {
			fail(err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, conversation)
	}
}

func ListChats(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("chat"))
			return
		}
		caller, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			fail(err)
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			fail(err)
			return
		}
		if list, err := svc.List(r.Context(), caller, page); err != nil {
			fail(err)
		} else {
			responses.WriteSuccess(w, list)
		}
	}
}

func SendChatMessage(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("chat"))
			return
		}
		caller, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			fail(err)
			return
		}
		chatID, err := validators.ParseUUIDParam(r, "chatId")
		if err != nil {
			fail(err)
			return
		}
		var payload sendChatMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			fail(err)
			return
		}
		msg, err := svc.Send(r.Context(), caller, chatID, payload.Text)
		if err != nil {
			fail(err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}

// ListChatMessages pages a conversation newest first; clients reverse for
// display.
func ListChatMessages(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("chat"))
			return
		}
		caller, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			fail(err)
			return
		}
		chatID, err := validators.ParseUUIDParam(r, "chatId")
		if err != nil {
			fail(err)
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			fail(err)
			return
		}
		if list, err := svc.Messages(r.Context(), caller, chatID, page); err != nil {
			fail(err)
		} else {
			responses.WriteSuccess(w, list)
		}
	}
}
