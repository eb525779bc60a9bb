package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockTwitchServer mocks the GQL comment feed the analysis pipeline reads
// from. CommentFeedClient.Endpoint is directly overridable for tests, so
// this server stands in for https://gql.twitch.tv/gql without any transport
// rewriting.
type MockTwitchServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockTwitchServer creates a new mock Twitch API server.
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockCommentPage registers a single-page GQL comment feed response at "/"
// (CommentFeedClient.Endpoint points directly at the mock server root).
// Passing an empty cursor means the page has no successor.
func (m *MockTwitchServer) MockCommentPage(offsetSeconds int, messages []string, nextCursor string) {
	m.Handlers["/"] = func(w http.ResponseWriter, r *http.Request) {
		edges := make([]map[string]any, 0, len(messages))
		for _, text := range messages {
			edges = append(edges, map[string]any{
				"cursor": "c",
				"node": map[string]any{
					"contentOffsetSeconds": offsetSeconds,
					"commenter":            map[string]any{"displayName": "viewer"},
					"message": map[string]any{
						"fragments": []map[string]any{{"text": text}},
					},
				},
			})
		}
		response := map[string]any{
			"data": map[string]any{
				"video": map[string]any{
					"comments": map[string]any{
						"edges": edges,
						"pageInfo": map[string]any{
							"hasNextPage": nextCursor != "",
						},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}
