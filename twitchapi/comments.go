package twitchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	commentsEndpoint      = "https://gql.twitch.tv/gql"
	commentsOperationName = "VideoCommentsByOffsetOrCursor"
	commentsQuerySHA256   = "b83cc431d21b23d79d9d4b9e00f9d62fbb9a9dd5b7b5bf8e8b5a6e8c7d57b2e0"
	maxFetchRetries       = 3
	maxErrorBodyExcerpt   = 200
)

// CommentFragment is one span of a comment's message, decoded straight off
// the wire shape the comment feed returns.
type CommentFragment struct {
	Text      string
	IsEmote   bool
	EmoteName string
}

// CommentEdge is one comment in a fetched page.
type CommentEdge struct {
	ContentOffsetSeconds int
	CommenterDisplayName string
	Fragments             []CommentFragment
}

// CommentPage is the decoded result of a single fetchCommentPage call.
// NextCursor is empty when there is no further page.
type CommentPage struct {
	Edges      []CommentEdge
	NextCursor string
}

// CommentFeedClient fetches pages of replay chat from Twitch's GQL comment
// feed using a persisted-query POST.
type CommentFeedClient struct {
	ClientID   string
	HTTPClient *http.Client
	Endpoint   string // overridable for tests; defaults to commentsEndpoint.
}

func (c *CommentFeedClient) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *CommentFeedClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return commentsEndpoint
}

type gqlVariables struct {
	VideoID              string `json:"videoID"`
	ContentOffsetSeconds int    `json:"contentOffsetSeconds,omitempty"`
	Cursor               string `json:"cursor,omitempty"`
}

type gqlPersistedQueryRequest struct {
	OperationName string `json:"operationName"`
	Variables     gqlVariables `json:"variables"`
	Extensions    struct {
		PersistedQuery struct {
			Version    int    `json:"version"`
			SHA256Hash string `json:"sha256Hash"`
		} `json:"persistedQuery"`
	} `json:"extensions"`
}

func newGQLRequest(videoID, cursor string, offsetSeconds int) gqlPersistedQueryRequest {
	req := gqlPersistedQueryRequest{OperationName: commentsOperationName}
	req.Variables.VideoID = videoID
	if cursor != "" {
		req.Variables.Cursor = cursor
	} else {
		req.Variables.ContentOffsetSeconds = offsetSeconds
	}
	req.Extensions.PersistedQuery.Version = 1
	req.Extensions.PersistedQuery.SHA256Hash = commentsQuerySHA256
	return req
}

type gqlCommentFragment struct {
	Text  string `json:"text"`
	Emote *struct {
		EmoteID string `json:"emoteID"`
	} `json:"emote"`
}

type gqlCommentEdge struct {
	Cursor string `json:"cursor"`
	Node   struct {
		ContentOffsetSeconds int `json:"contentOffsetSeconds"`
		Commenter            *struct {
			DisplayName string `json:"displayName"`
		} `json:"commenter"`
		Message struct {
			Fragments []gqlCommentFragment `json:"fragments"`
		} `json:"message"`
	} `json:"node"`
}

type gqlResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Data struct {
		Video *struct {
			Comments struct {
				Edges    []gqlCommentEdge `json:"edges"`
				PageInfo struct {
					HasNextPage bool `json:"hasNextPage"`
				} `json:"pageInfo"`
			} `json:"comments"`
		} `json:"video"`
	} `json:"data"`
}

// FetchCommentPage fetches one page, honoring the retry policy: up to
// maxFetchRetries retries beyond the initial attempt, with 1s/2s/4s backoff
// between attempts, short-circuiting on the first fatal error or success.
//
// Exactly one of cursor and offsetSeconds is meaningful; cursor takes
// precedence when non-empty.
func (c *CommentFeedClient) FetchCommentPage(ctx context.Context, videoID, cursor string, offsetSeconds int) (CommentPage, error) {
	var lastErr error
	for attempt := 0; attempt <= maxFetchRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return CommentPage{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		page, err := c.fetchOnce(ctx, videoID, cursor, offsetSeconds)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if ClassifyFetchError(err) == FetchFatal {
			return CommentPage{}, err
		}
		slog.Warn("comment page fetch failed, retrying",
			slog.String("video_id", videoID), slog.Int("attempt", attempt+1), slog.Any("err", err))
	}
	return CommentPage{}, lastErr
}

func (c *CommentFeedClient) fetchOnce(ctx context.Context, videoID, cursor string, offsetSeconds int) (CommentPage, error) {
	payload, err := json.Marshal(newGQLRequest(videoID, cursor, offsetSeconds))
	if err != nil {
		return CommentPage{}, fmt.Errorf("invalid video id: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return CommentPage{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Id", c.ClientID)

	resp, err := c.http().Do(req)
	if err != nil {
		return CommentPage{}, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("failed to close comment feed response body", slog.Any("err", cerr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CommentPage{}, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable {
		return CommentPage{}, fmt.Errorf("comment feed returned %d (retryable)", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := string(body)
		if len(excerpt) > maxErrorBodyExcerpt {
			excerpt = excerpt[:maxErrorBodyExcerpt]
		}
		return CommentPage{}, fmt.Errorf("comment feed returned status %s: %s", resp.Status, excerpt)
	}

	var decoded gqlResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return CommentPage{}, fmt.Errorf("comment feed returned unexpected shape: %w", err)
	}

	if len(decoded.Errors) > 0 {
		msgs := make([]string, 0, len(decoded.Errors))
		for _, e := range decoded.Errors {
			msgs = append(msgs, e.Message)
		}
		combined := strings.Join(msgs, "; ")
		lower := strings.ToLower(combined)
		if strings.Contains(lower, "timeout") || strings.Contains(lower, "rate") ||
			strings.Contains(lower, "503") || strings.Contains(lower, "502") {
			return CommentPage{}, fmt.Errorf("comment feed transient error: %s", combined)
		}
		return CommentPage{}, fmt.Errorf("video not found: comment feed error: %s", combined)
	}

	if decoded.Data.Video == nil {
		return CommentPage{}, fmt.Errorf("video not found: no video in comment feed response")
	}

	comments := decoded.Data.Video.Comments
	page := CommentPage{Edges: make([]CommentEdge, 0, len(comments.Edges))}
	for _, e := range comments.Edges {
		edge := CommentEdge{
			ContentOffsetSeconds: e.Node.ContentOffsetSeconds,
		}
		if e.Node.Commenter != nil {
			edge.CommenterDisplayName = e.Node.Commenter.DisplayName
		}
		for _, f := range e.Node.Message.Fragments {
			if f.Emote != nil {
				edge.Fragments = append(edge.Fragments, CommentFragment{Text: f.Text, IsEmote: true, EmoteName: f.Text})
				continue
			}
			edge.Fragments = append(edge.Fragments, CommentFragment{Text: f.Text})
		}
		page.Edges = append(page.Edges, edge)
	}

	if len(page.Edges) == 0 || !comments.PageInfo.HasNextPage {
		page.NextCursor = ""
	} else {
		page.NextCursor = comments.Edges[len(comments.Edges)-1].Cursor
	}
	return page, nil
}
