package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvolkov/biotap/internal/db/memorystorage"
	"github.com/mvolkov/biotap/internal/user"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, VerifyPassword(hash, "correct horse battery staple"))
	assert.False(t, VerifyPassword(hash, "wrong password"))
}

func TestBuildAndParseToken(t *testing.T) {
	theAuth := New(nil, []byte("test-signing-key"), time.Hour)

	token, err := theAuth.BuildToken("user-42")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := theAuth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestParseTokenRejectsWrongKey(t *testing.T) {
	issuer := New(nil, []byte("key-one"), time.Hour)
	verifier := New(nil, []byte("key-two"), time.Hour)

	token, err := issuer.BuildToken("user-42")
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	require.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	theAuth := New(nil, []byte("test-signing-key"), -time.Minute)

	token, err := theAuth.BuildToken("user-42")
	require.NoError(t, err)

	_, err = theAuth.ParseToken(token)
	require.Error(t, err)
}

func TestRequireUser(t *testing.T) {
	db, err := memorystorage.New()
	require.NoError(t, err)

	activeUser := &user.User{
		ID:       "active-user",
		Username: "alice",
		Email:    "alice@example.com",
		IsActive: true,
	}
	require.NoError(t, db.CreateUser(context.Background(), activeUser, nil))

	inactiveUser := &user.User{
		ID:       "inactive-user",
		Username: "bob",
		Email:    "bob@example.com",
		IsActive: false,
	}
	require.NoError(t, db.CreateUser(context.Background(), inactiveUser, nil))

	theAuth := New(db, []byte("test-signing-key"), time.Hour)

	handler := theAuth.RequireUser(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		usr, ok := UserFromContext(req.Context())
		require.True(t, ok)
		res.Write([]byte(usr.ID))
	}))

	buildHeader := func(userID string) string {
		token, err := theAuth.BuildToken(userID)
		require.NoError(t, err)
		return "Bearer " + token
	}

	testCases := []struct {
		name          string
		authorization string
		expectedCode  int
		expectedBody  string
	}{
		{
			name:          "valid_token",
			authorization: buildHeader("active-user"),
			expectedCode:  http.StatusOK,
			expectedBody:  "active-user",
		},
		{
			name:          "missing_header",
			authorization: "",
			expectedCode:  http.StatusUnauthorized,
		},
		{
			name:          "garbage_token",
			authorization: "Bearer not-a-jwt",
			expectedCode:  http.StatusUnauthorized,
		},
		{
			name:          "unknown_user",
			authorization: buildHeader("no-such-user"),
			expectedCode:  http.StatusUnauthorized,
		},
		{
			name:          "inactive_user",
			authorization: buildHeader("inactive-user"),
			expectedCode:  http.StatusBadRequest,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if testCase.authorization != "" {
				req.Header.Set("Authorization", testCase.authorization)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, req)

			assert.Equal(t, testCase.expectedCode, recorder.Code)
			if testCase.expectedBody != "" {
				assert.Equal(t, testCase.expectedBody, recorder.Body.String())
			}
		})
	}
}
