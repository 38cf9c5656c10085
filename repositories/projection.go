package repositories

import "github.com/cppla/postfeed/models"

// Column sets for the read-side join. Feed rows carry a light author card;
// detail views add contact fields.
var (
	feedAuthorColumns      = []string{"id", "name", "username", "avatar_url", "headline"}
	feedCommenterColumns   = []string{"id", "name", "avatar_url"}
	detailAuthorColumns    = []string{"id", "name", "username", "avatar_url", "headline", "email"}
	detailCommenterColumns = []string{"id", "name", "avatar_url", "username", "email"}
)

func authorSummary(u models.User, detail bool) *models.User {
	s := &models.User{ID: u.ID, Name: u.Name, Username: u.Username, AvatarURL: u.AvatarURL, Headline: u.Headline}
	if detail {
		s.Email = u.Email
	}
	return s
}

func commenterSummary(u models.User, detail bool) *models.User {
	s := &models.User{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
	if detail {
		s.Username = u.Username
		s.Email = u.Email
	}
	return s
}

// normalize guarantees empty collections encode as [] rather than null.
func normalize(p *models.Post) {
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
}
