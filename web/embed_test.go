package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerServesChatClient(t *testing.T) {
	h := Handler()

	tests := []struct {
		path     string
		contains string
	}{
		{"/", "Assistant ERP"},
		{"/chat.js", "/ws/chat"},
		{"/conversations/42", "Assistant ERP"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}
