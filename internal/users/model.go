package users

import "time"

type User struct {
	ID         int64     `json:"id"`
	Name       *string   `json:"name"`
	Email      string    `json:"email"`
	GoogleSub  string    `json:"-"`
	PictureURL string    `json:"pictureUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CreateInput struct {
	Name  *string `json:"name"`
	Email string  `json:"email"`
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// Identity is the profile returned by an OAuth provider.
type Identity struct {
	Sub        string
	Email      string
	Name       string
	PictureURL string
}
