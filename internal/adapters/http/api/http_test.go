package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/huddle/internal/adapters/auth"
	"github.com/okian/huddle/internal/adapters/http/api"
	service "github.com/okian/huddle/internal/app"
	"github.com/okian/huddle/internal/domain/digest"
	"github.com/okian/huddle/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

// mockDigests records the last call and returns canned results.
type mockDigests struct {
	digest model.Digest
	err    error

	lastRole    string
	lastSubject string
	lastSession auth.Session
}

func (m *mockDigests) CoachDigest(ctx context.Context, coachID string) (model.Digest, error) {
	m.lastRole, m.lastSubject = "coach", coachID
	m.lastSession, _ = auth.SessionFromContext(ctx)
	return m.digest, m.err
}

func (m *mockDigests) PlayerDigest(ctx context.Context, playerID string) (model.Digest, error) {
	m.lastRole, m.lastSubject = "player", playerID
	m.lastSession, _ = auth.SessionFromContext(ctx)
	return m.digest, m.err
}

type mockStats struct{}

func (mockStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "fanoutWorkers": 4}
}

func sampleDigest() model.Digest {
	d := model.NewDigest()
	d.Comments = []model.Comment{
		{ID: "m2", GameID: "g1", AuthorID: "p1", Body: "later", CreatedAt: now.Add(-time.Hour)},
		{ID: "m1", GameID: "g1", KeyMomentID: "k1", AuthorID: "p2", Body: "earlier", CreatedAt: now.Add(-2 * time.Hour)},
	}
	d.TitleByGame["g1"] = "Opener"
	d.TeamByGame["g1"] = "t1"
	d.NameByAuthor["p1"] = "Pia Lund"
	return d
}

type harness struct {
	mux      *http.ServeMux
	deps     *mockDigests
	verifier *auth.Verifier
}

func newHarness() harness {
	v, err := auth.NewVerifier("s3cret", "huddle", auth.WithNow(func() time.Time { return now }))
	So(err, ShouldBeNil)
	deps := &mockDigests{digest: sampleDigest()}
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}, v).Register(mux)
	return harness{mux: mux, deps: deps, verifier: v}
}

func (h harness) get(path, userID string, role model.Role) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != "" {
		tok, err := h.verifier.Issue(userID, role, time.Hour)
		So(err, ShouldBeNil)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func TestDigestRoutes(t *testing.T) {
	Convey("Given a registered server", t, func() {
		h := newHarness()

		Convey("When a coach asks for their digest", func() {
			rec := h.get("/digests/coach/c1", "c1", model.RoleCoach)

			Convey("Then the ordered digest and its maps are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(h.deps.lastRole, ShouldEqual, "coach")
				So(h.deps.lastSubject, ShouldEqual, "c1")
				So(h.deps.lastSession.UserID, ShouldEqual, "c1")

				var body struct {
					Count    int `json:"count"`
					Comments []struct {
						ID          string `json:"id"`
						KeyMomentID string `json:"key_moment_id"`
					} `json:"comments"`
					TitleByGame  map[string]string `json:"title_by_game"`
					TeamByGame   map[string]string `json:"team_by_game"`
					NameByAuthor map[string]string `json:"name_by_author"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body.Count, ShouldEqual, 2)
				So(body.Comments[0].ID, ShouldEqual, "m2")
				So(body.Comments[1].KeyMomentID, ShouldEqual, "k1")
				So(body.TitleByGame["g1"], ShouldEqual, "Opener")
				So(body.TeamByGame["g1"], ShouldEqual, "t1")
				So(body.NameByAuthor, ShouldResemble, map[string]string{"p1": "Pia Lund"})
			})
		})

		Convey("When no bearer token is sent", func() {
			rec := h.get("/digests/coach/c1", "", "")

			Convey("Then the request is unauthorized", func() {
				So(rec.Code, ShouldEqual, http.StatusUnauthorized)
				So(rec.Header().Get("WWW-Authenticate"), ShouldStartWith, "Bearer")
				So(h.deps.lastRole, ShouldBeEmpty)
			})
		})

		Convey("When the bearer token is garbage", func() {
			req := httptest.NewRequest(http.MethodGet, "/digests/coach/c1", nil)
			req.Header.Set("Authorization", "Bearer not-a-jwt")
			rec := httptest.NewRecorder()
			h.mux.ServeHTTP(rec, req)

			Convey("Then the request is unauthorized", func() {
				So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When a player asks for their own digest", func() {
			rec := h.get("/digests/player/p1", "p1", model.RolePlayer)

			Convey("Then it is served", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(h.deps.lastRole, ShouldEqual, "player")
				So(h.deps.lastSubject, ShouldEqual, "p1")
			})
		})

		Convey("When a player asks for someone else's digest", func() {
			rec := h.get("/digests/player/p2", "p1", model.RolePlayer)

			Convey("Then it is forbidden without calling the service", func() {
				So(rec.Code, ShouldEqual, http.StatusForbidden)
				So(h.deps.lastRole, ShouldBeEmpty)
			})
		})

		Convey("When the path has no id or extra segments", func() {
			So(h.get("/digests/coach/", "c1", model.RoleCoach).Code, ShouldEqual, http.StatusBadRequest)
			So(h.get("/digests/coach/c1/extra", "c1", model.RoleCoach).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the method is not GET", func() {
			tok, _ := h.verifier.Issue("c1", model.RoleCoach, time.Hour)
			req := httptest.NewRequest(http.MethodPost, "/digests/coach/c1", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			rec := httptest.NewRecorder()
			h.mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestDigestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: no session", digest.ErrAuth), http.StatusUnauthorized, "unauthorized"},
		{digest.ErrIdentityMismatch, http.StatusForbidden, "forbidden"},
		{&digest.RemoteFetchError{Source: "comments", Err: context.DeadlineExceeded}, http.StatusBadGateway, "upstream_unavailable"},
		{context.Canceled, http.StatusServiceUnavailable, "unavailable"},
		{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
		{digest.ErrSubjectRequired, http.StatusBadRequest, "bad_request"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}

	Convey("Given a service that fails", t, func() {
		h := newHarness()
		for _, tc := range cases {
			Convey(fmt.Sprintf("When it returns %v", tc.err), func() {
				h.deps.err = tc.err
				rec := h.get("/digests/coach/c1", "c1", model.RoleCoach)

				Convey(fmt.Sprintf("Then the response is %d %s", tc.status, tc.code), func() {
					So(rec.Code, ShouldEqual, tc.status)
					var body struct {
						Code string `json:"code"`
					}
					So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
					So(body.Code, ShouldEqual, tc.code)
				})
			})
		}
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given a registered server", t, func() {
		h := newHarness()

		Convey("Then /healthz reports ok", func() {
			rec := h.get("/healthz", "", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then /stats returns the provider's stats", func() {
			rec := h.get("/stats", "", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(rec.Body.String(), ShouldContainSubstring, `"fanoutWorkers":4`)
		})

		Convey("Then /metrics exposes the request counters", func() {
			_ = h.get("/healthz", "", "")
			rec := h.get("/metrics", "", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(strings.Contains(rec.Body.String(), "huddle_http_requests_total"), ShouldBeTrue)
		})
	})
}
