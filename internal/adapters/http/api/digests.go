package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/okian/huddle/internal/adapters/auth"
	"github.com/okian/huddle/internal/domain/model"
)

const (
	coachPrefix  = "/digests/coach/"
	playerPrefix = "/digests/player/"
)

// DigestHandler serves coach and player digests.
type DigestHandler struct {
	deps Dependencies
}

// NewDigestHandler creates a new digest handler.
func NewDigestHandler(deps Dependencies) *DigestHandler {
	return &DigestHandler{deps: deps}
}

type commentView struct {
	ID          string    `json:"id"`
	GameID      string    `json:"game_id"`
	KeyMomentID string    `json:"key_moment_id,omitempty"`
	AuthorID    string    `json:"author_id"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

type digestResponse struct {
	Count        int               `json:"count"`
	Comments     []commentView     `json:"comments"`
	TitleByGame  map[string]string `json:"title_by_game"`
	TeamByGame   map[string]string `json:"team_by_game"`
	NameByAuthor map[string]string `json:"name_by_author"`
}

func newDigestResponse(d model.Digest) digestResponse {
	out := digestResponse{
		Count:        d.Len(),
		Comments:     make([]commentView, len(d.Comments)),
		TitleByGame:  d.TitleByGame,
		TeamByGame:   d.TeamByGame,
		NameByAuthor: d.NameByAuthor,
	}
	for i, c := range d.Comments {
		out.Comments[i] = commentView{
			ID:          c.ID,
			GameID:      c.GameID,
			KeyMomentID: c.KeyMomentID,
			AuthorID:    c.AuthorID,
			Body:        c.Body,
			CreatedAt:   c.CreatedAt.UTC(),
		}
	}
	return out
}

// HandleCoachDigest handles GET /digests/coach/{coach_id} requests.
func (h *DigestHandler) HandleCoachDigest(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, coachPrefix, h.deps.CoachDigest)
}

// HandlePlayerDigest handles GET /digests/player/{player_id} requests.
// The session must belong to the player.
func (h *DigestHandler) HandlePlayerDigest(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, playerPrefix, func(ctx context.Context, playerID string) (model.Digest, error) {
		if s, ok := auth.SessionFromContext(ctx); !ok || s.UserID != playerID {
			return model.Digest{}, ErrNotYours
		}
		return h.deps.PlayerDigest(ctx, playerID)
	})
}

func (h *DigestHandler) serve(w http.ResponseWriter, r *http.Request, prefix string,
	build func(ctx context.Context, id string) (model.Digest, error),
) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	d, err := build(r.Context(), id)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, newDigestResponse(d))
}
