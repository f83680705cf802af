package model

import "time"

// Score bounds for a Review.
const (
	MinScore = 1
	MaxScore = 10
)

// Review is one account's opinion of one title. An author can review a given
// title at most once (UNIQUE(author_id, title_id) in the store).
//
// AuthorID is fixed at creation; Author carries the author's username for
// display and is filled by the repository's JOIN.
type Review struct {
	ID       string    `json:"id"`
	TitleID  string    `json:"-"`
	AuthorID string    `json:"-"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	Score    int       `json:"score"`
	PubDate  time.Time `json:"pub_date"`
}

// Comment is a reply to a Review. It's deleted together with its review.
type Comment struct {
	ID       string    `json:"id"`
	ReviewID string    `json:"-"`
	AuthorID string    `json:"-"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pub_date"`
}
