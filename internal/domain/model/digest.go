package model

// Digest is the per-request activity feed for one user.
// Comments keep the order in which the comment store returned them.
type Digest struct {
	Comments     []Comment
	TitleByGame  map[string]string
	TeamByGame   map[string]string
	NameByAuthor map[string]string
}

// NewDigest returns an empty digest with initialised lookup maps.
func NewDigest() Digest {
	return Digest{
		Comments:     []Comment{},
		TitleByGame:  map[string]string{},
		TeamByGame:   map[string]string{},
		NameByAuthor: map[string]string{},
	}
}

// Len returns the number of comments in the digest.
func (d Digest) Len() int { return len(d.Comments) }

// IsEmpty reports whether the digest carries no comments.
func (d Digest) IsEmpty() bool { return len(d.Comments) == 0 }
