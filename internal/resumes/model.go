package resumes

import "time"

type Resume struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateInput struct {
	Title  string `json:"title"`
	UserID int64  `json:"userId"`
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Title  *string `json:"title"`
	UserID *int64  `json:"userId"`
}
