package firebase

import (
	"context"
	"errors"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/univend-backend/pkg/config"
	"github.com/angelmondragon/univend-backend/pkg/enums"
)

type stubTokens struct {
	token *firebaseauth.Token
	err   error
	seen  string
}

func (s *stubTokens) VerifyIDToken(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	s.seen = idToken
	return s.token, s.err
}

func TestVerifierMapsCustomClaims(t *testing.T) {
	tokens := &stubTokens{token: &firebaseauth.Token{
		UID: "uid-42",
		Claims: map[string]any{
			"role":       "Rider",
			"university": " UNILAG ",
			"name":       "Tolu",
			"address":    "Jaja Hall",
		},
	}}
	v, err := NewVerifier(tokens)
	require.NoError(t, err)

	identity, err := v.Verify(context.Background(), " id-token ")
	require.NoError(t, err)
	assert.Equal(t, "id-token", tokens.seen)
	assert.Equal(t, "uid-42", identity.UserID)
	assert.Equal(t, enums.RoleRider, identity.Role)
	assert.Equal(t, "UNILAG", identity.University)
	assert.Equal(t, "Jaja Hall", identity.Address)
}

func TestVerifierDefaultsToBuyer(t *testing.T) {
	v, err := NewVerifier(&stubTokens{token: &firebaseauth.Token{UID: "uid-1"}})
	require.NoError(t, err)

	identity, err := v.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, enums.RoleBuyer, identity.Role)
}

func TestVerifierRejectsBadTokens(t *testing.T) {
	v, err := NewVerifier(&stubTokens{err: errors.New("expired")})
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), "tok")
	assert.Error(t, err)

	_, err = v.Verify(context.Background(), "  ")
	assert.Error(t, err)

	v, err = NewVerifier(&stubTokens{token: &firebaseauth.Token{UID: "uid-1", Claims: map[string]any{"role": "chef"}}})
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), "tok")
	assert.Error(t, err)

	_, err = NewVerifier(nil)
	assert.Error(t, err)
}

type stubMulticast struct {
	resp *messaging.BatchResponse
	err  error
	got  *messaging.MulticastMessage
}

func (s *stubMulticast) SendEachForMulticast(_ context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	s.got = msg
	return s.resp, s.err
}

func TestMessengerSendsToAllTokens(t *testing.T) {
	client := &stubMulticast{resp: &messaging.BatchResponse{
		SuccessCount: 1,
		FailureCount: 1,
		Responses: []*messaging.SendResponse{
			{Success: true, MessageID: "m-1"},
			{Success: false, Error: errors.New("quota")},
		},
	}}
	m, err := NewMessenger(client)
	require.NoError(t, err)

	result, err := m.Send(context.Background(), Push{
		Tokens: []string{"a", "b"},
		Title:  "Order accepted",
		Body:   "Your order is on its way",
		Data:   map[string]string{"orderId": "o-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, result.Stale)
	assert.Equal(t, []string{"a", "b"}, client.got.Tokens)
	assert.Equal(t, "Order accepted", client.got.Notification.Title)
}

func TestMessengerSkipsEmptyTokenList(t *testing.T) {
	client := &stubMulticast{err: errors.New("should not be called")}
	m, err := NewMessenger(client)
	require.NoError(t, err)

	result, err := m.Send(context.Background(), Push{Title: "x"})
	require.NoError(t, err)
	assert.Zero(t, result.Sent)
	assert.Nil(t, client.got)
}

func TestProjectIDFallsBackToGCP(t *testing.T) {
	assert.Equal(t, "univend-fb", projectID(config.GCPConfig{ProjectID: "univend"}, config.FirebaseConfig{ProjectID: "univend-fb"}))
	assert.Equal(t, "univend", projectID(config.GCPConfig{ProjectID: " univend "}, config.FirebaseConfig{}))

	_, err := NewApp(context.Background(), config.GCPConfig{}, config.FirebaseConfig{})
	assert.ErrorIs(t, err, errProjectIDRequired)
}
