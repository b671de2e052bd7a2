package domain

import "time"

// Video is the domain model for published videos.
type Video struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	VideoFile   string
	Thumbnail   string
	Duration    string
	Published   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// VideoOwner is the reduced owner view embedded in listings.
type VideoOwner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// WatchHistoryEntry is a watched video joined with its owner.
type WatchHistoryEntry struct {
	Video     Video
	Owner     VideoOwner
	WatchedAt time.Time
}
