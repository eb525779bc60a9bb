// Package twitchapi talks to Twitch's Helix REST API, using an app access
// token obtained via the client-credentials grant, and to the GQL comment
// feed, which takes only a Client-Id header.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// HelixClient resolves a video id to its canonical metadata.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	HTTPClient     *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

// Video is the subset of Helix video metadata the analysis pipeline cares
// about: whether the video exists and how long it runs.
type Video struct {
	ID       string
	Title    string
	Duration string
}

// GetVideo resolves a video id via the Helix /videos endpoint. It returns an
// error wrapping "video not found" when Twitch reports zero matching videos,
// which twitchapi.ClassifyFetchError treats as fatal.
func (hc *HelixClient) GetVideo(ctx context.Context, videoID string) (Video, error) {
	if videoID == "" {
		return Video{}, fmt.Errorf("video id empty")
	}
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return Video{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.twitch.tv/helix/videos", nil)
	if err != nil {
		return Video{}, err
	}
	q := req.URL.Query()
	q.Set("id", videoID)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := hc.http().Do(req)
	if err != nil {
		return Video{}, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return Video{}, fmt.Errorf("helix videos request failed: %s", resp.Status)
	}

	var body struct {
		Data []struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Duration string `json:"duration"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Video{}, err
	}
	if len(body.Data) == 0 {
		return Video{}, fmt.Errorf("video not found: %s", videoID)
	}
	v := body.Data[0]
	return Video{ID: v.ID, Title: v.Title, Duration: v.Duration}, nil
}
