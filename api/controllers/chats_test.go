package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/univend-backend/internal/chat"
	"github.com/angelmondragon/univend-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

type stubChats struct {
	existing  bool
	opened    uuid.UUID
	sentTo    uuid.UUID
	sentText  string
	caller    auth.Identity
	listedFor string
	failWith  error
}

func (s *stubChats) Open(ctx context.Context, buyer auth.Identity, productID uuid.UUID) (*chat.ChatDTO, bool, error) {
	if s.failWith != nil {
		return nil, false, s.failWith
	}
	s.opened, s.caller = productID, buyer
	return &chat.ChatDTO{ID: uuid.NewString(), ProductID: productID.String(), BuyerID: buyer.UserID}, !s.existing, nil
}

func (s *stubChats) Send(ctx context.Context, sender auth.Identity, chatID uuid.UUID, text string) (*chat.MessageDTO, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.sentTo, s.sentText, s.caller = chatID, text, sender
	return &chat.MessageDTO{ID: uuid.NewString(), ChatID: chatID.String(), SenderID: sender.UserID, Text: text}, nil
}

func (s *stubChats) List(ctx context.Context, user auth.Identity, params pagination.Params) (*chat.ChatList, error) {
	s.listedFor = user.UserID
	return &chat.ChatList{Chats: []chat.ChatDTO{}}, nil
}

func (s *stubChats) Messages(ctx context.Context, user auth.Identity, chatID uuid.UUID, params pagination.Params) (*chat.MessageList, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.listedFor = user.UserID
	return &chat.MessageList{Messages: []chat.MessageDTO{}}, nil
}

func TestOpenChatStatusReflectsCreation(t *testing.T) {
	productID := uuid.New()
	body := `{"productId":"` + productID.String() + `"}`

	svc := &stubChats{}
	rec := httptest.NewRecorder()
	OpenChat(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/", body, &buyerIdentity, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, productID, svc.opened)
	assert.Equal(t, buyerIdentity.UserID, svc.caller.UserID)

	svc = &stubChats{existing: true}
	rec = httptest.NewRecorder()
	OpenChat(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/", body, &buyerIdentity, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out chat.ChatDTO
	decodeData(t, rec, &out)
	assert.Equal(t, productID.String(), out.ProductID)
}

func TestOpenChatRejectsBadInput(t *testing.T) {
	for name, body := range map[string]string{
		"missing product": `{}`,
		"bad product id":  `{"productId":"lamp"}`,
		"unknown field":   `{"productId":"` + uuid.NewString() + `","vendorId":"v"}`,
	} {
		t.Run(name, func(t *testing.T) {
			svc := &stubChats{}
			rec := httptest.NewRecorder()
			OpenChat(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/", body, &buyerIdentity, nil))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, uuid.Nil, svc.opened)
		})
	}
}

func TestSendChatMessage(t *testing.T) {
	svc := &stubChats{}
	chatID := uuid.New()
	params := map[string]string{"chatId": chatID.String()}

	rec := httptest.NewRecorder()
	SendChatMessage(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/", `{"text":"Still available?"}`, &vendorIdentity, params))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, chatID, svc.sentTo)
	assert.Equal(t, "Still available?", svc.sentText)
	assert.Equal(t, vendorIdentity.UserID, svc.caller.UserID)

	for name, body := range map[string]string{
		"empty":    `{"text":""}`,
		"too long": `{"text":"` + strings.Repeat("a", 1001) + `"}`,
	} {
		t.Run(name, func(t *testing.T) {
			svc := &stubChats{}
			rec := httptest.NewRecorder()
			SendChatMessage(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/", body, &buyerIdentity, params))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, svc.sentText)
		})
	}
}

func TestChatOutsiderGetsNotFound(t *testing.T) {
	svc := &stubChats{failWith: pkgerrors.New(pkgerrors.CodeNotFound, "chat not found")}
	params := map[string]string{"chatId": uuid.NewString()}

	rec := httptest.NewRecorder()
	ListChatMessages(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/", "", &buyerIdentity, params))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	SendChatMessage(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/", `{"text":"hi"}`, &buyerIdentity, params))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListChatsUsesCaller(t *testing.T) {
	svc := &stubChats{}
	rec := httptest.NewRecorder()
	ListChats(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/?limit=10", "", &vendorIdentity, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vendorIdentity.UserID, svc.listedFor)
}
