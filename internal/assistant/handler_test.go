package assistant

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	httperr "github.com/sensorwatch-lab/sensorwatch/internal/core/errors"
	"github.com/sensorwatch-lab/sensorwatch/internal/core/storage"
	assistantmocks "github.com/sensorwatch-lab/sensorwatch/internal/mocks/assistant"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_HandleAsk(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name              string
		body              string
		source            StatusSource
		configureProvider func(p *assistantmocks.Provider)
		expectedStatus    int
		expectedType      string
		expectedAnswer    string
	}{
		{
			name:   "answered",
			body:   `{"question":"Is it safe?"}`,
			source: fakeSource{snap: liveSnapshot(3)},
			configureProvider: func(p *assistantmocks.Provider) {
				p.EXPECT().Generate(mock.Anything, mock.Anything).Return("Yes.", nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedAnswer: "Yes.",
		},
		{
			name:              "no data",
			body:              `{"question":"Is it safe?"}`,
			source:            fakeSource{snap: emptySnapshot()},
			configureProvider: func(_ *assistantmocks.Provider) {},
			expectedStatus:    http.StatusOK,
			expectedAnswer:    NoDataAnswer,
		},
		{
			name:   "provider down",
			body:   `{"question":"Is it safe?"}`,
			source: fakeSource{snap: liveSnapshot(3)},
			configureProvider: func(p *assistantmocks.Provider) {
				p.EXPECT().Generate(mock.Anything, mock.Anything).Return("", errors.New("dial tcp: connection refused")).Once()
			},
			expectedStatus: http.StatusOK,
			expectedAnswer: UnavailableAnswer,
		},
		{
			name:              "malformed body",
			body:              `{"question":`,
			source:            fakeSource{snap: liveSnapshot(1)},
			configureProvider: func(_ *assistantmocks.Provider) {},
			expectedStatus:    http.StatusBadRequest,
			expectedType:      httperr.HttpInvalidJsonError,
		},
		{
			name:              "empty question",
			body:              `{"question":"   "}`,
			source:            fakeSource{snap: liveSnapshot(1)},
			configureProvider: func(_ *assistantmocks.Provider) {},
			expectedStatus:    http.StatusBadRequest,
			expectedType:      httperr.HttpValidationError,
		},
		{
			name:              "store unavailable",
			body:              `{"question":"Is it safe?"}`,
			source:            fakeSource{err: storage.Unavailable("recent", errors.New("database is locked"))},
			configureProvider: func(_ *assistantmocks.Provider) {},
			expectedStatus:    http.StatusServiceUnavailable,
			expectedType:      httperr.HttpStorageUnavailableError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, provider := newTestService(t, tt.source)
			tt.configureProvider(provider)

			r := gin.New()
			svc.RegisterRoutes(r)

			req := httptest.NewRequest(http.MethodPost, "/v1/assistant/ask", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			if tt.expectedType != "" {
				var resp httperr.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				require.Equal(t, tt.expectedType, resp.ErrorType)
				return
			}

			var answer Answer
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answer))
			require.Equal(t, tt.expectedAnswer, answer.Answer)
		})
	}
}
