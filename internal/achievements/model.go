package achievements

import "time"

type Achievement struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	ResumeID  *int64    `json:"resumeId"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateInput struct {
	Body     string `json:"body"`
	ResumeID *int64 `json:"resumeId"`
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Body     *string `json:"body"`
	ResumeID *int64  `json:"resumeId"`
}
