package youtube

import (
	"time"

	"github.com/kkdai/youtube/v2"
)

// Client wraps YouTube video metadata and stream access
type Client struct {
	client youtube.Client
}

// NewClient creates a new YouTube client
func NewClient() *Client {
	return &Client{
		client: youtube.Client{},
	}
}

// VideoInfo holds the metadata of a video
type VideoInfo struct {
	ID          string
	Title       string
	Author      string
	Duration    time.Duration
	Description string
}
