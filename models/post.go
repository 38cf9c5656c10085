package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sentiment is the optional enrichment attached to a post at creation.
type Sentiment struct {
	Label string  `json:"label" bson:"label"`
	Score float64 `json:"score" bson:"score"`
}

// Post is the engagement aggregate: comments and likes live with the post.
type Post struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	UserID    string     `gorm:"index;size:36;not null" json:"user_id" bson:"author"`
	Content   string     `gorm:"type:text;not null" json:"content" bson:"content"`
	Image     string     `gorm:"size:1024" json:"image,omitempty" bson:"image,omitempty"`
	Sentiment *Sentiment `gorm:"serializer:json;type:text" json:"sentiment,omitempty" bson:"sentiment,omitempty"`
	Likes     []string   `gorm:"-" json:"likes" bson:"likes"`
	Comments  []Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments" bson:"comments"`
	CreatedAt time.Time  `gorm:"index" json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
	User      *User      `gorm:"foreignKey:UserID" json:"author,omitempty" bson:"-"`
}

// BeforeCreate assigns the post id.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// LikedBy reports whether userID is in the like set.
func (p *Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// PostLike is one member of a post's like set. The composite key keeps the set
// free of duplicates.
type PostLike struct {
	PostID    string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:36;index"`
	CreatedAt time.Time
}
