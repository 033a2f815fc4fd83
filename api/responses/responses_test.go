package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "world", body.Data.(map[string]any)["hello"])
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
		details bool
	}{
		{pkgerrors.New(pkgerrors.CodeValidation, "bad input").WithDetails(map[string]string{"field": "otp"}), http.StatusBadRequest, "bad input", true},
		{pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is COMPLETED"), http.StatusUnprocessableEntity, "order is COMPLETED", false},
		{pkgerrors.New(pkgerrors.CodeResourceConflict, "driver already busy"), http.StatusConflict, "driver already busy", false},
		{pkgerrors.New(pkgerrors.CodeNotFound, "order not found"), http.StatusNotFound, "order not found", false},
		{pkgerrors.New(pkgerrors.CodeDependency, "redis down"), http.StatusServiceUnavailable, "dependency unavailable", false},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		WriteError(context.Background(), logger.Nop(), w, tc.err)
		assert.Equal(t, tc.status, w.Code)

		var body ErrorEnvelope
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, string(pkgerrors.As(tc.err).Code()), body.Error.Code)
		assert.Equal(t, tc.message, body.Error.Message)
		assert.Equal(t, tc.details, body.Error.Details != nil)
	}
}

func TestWriteErrorHidesUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	assert.Equal(t, "internal server error", body.Error.Message)
	assert.Nil(t, body.Error.Details)
}

func TestWriteErrorFlagsRetryableCodes(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "redis down"))

	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.True(t, body.Error.Retryable)
}

func TestWriteSuccessFallsBackWhenPayloadCannotEncode(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}
