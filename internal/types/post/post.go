package post

import "time"

const Collection = "blogs"

type Post struct {
	ID        string    `firestore:"-" json:"id"`
	Title     string    `firestore:"title" json:"title"`
	Content   string    `firestore:"content" json:"content"`
	Author    string    `firestore:"author" json:"author"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	Likes     int       `firestore:"likes" json:"likes"`
}

type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author,omitempty"`
}
