package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/Decentr-net/iris/internal/api"
	"github.com/Decentr-net/iris/internal/auth"
	"github.com/Decentr-net/iris/internal/interaction"
)

func (s *server) getSession(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /session Session GetSession
	//
	// Returns the screen to start with and the stored user.
	//
	// ---
	// produces:
	// - application/json
	// responses:
	//   '200':
	//     description: Session
	//     schema:
	//       "$ref": "#/definitions/SessionResponse"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	sess, screen, err := s.flow.Current(r.Context())
	if err != nil {
		writeInternalErrorf(r.Context(), w, "failed to load session: %s", err.Error())
		return
	}

	resp := SessionResponse{Screen: string(screen)}
	if screen == auth.FeedScreen {
		u := toUser(sess.User)
		resp.User = &u
	}

	writeOK(w, http.StatusOK, resp)
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /login Session Login
	//
	// Logs in and stores the session. Feeds of a previous user are dropped.
	//
	// ---
	// consumes:
	// - application/json
	// produces:
	// - application/json
	// parameters:
	// - name: request
	//   in: body
	//   required: true
	//   schema:
	//     "$ref": "#/definitions/LoginRequest"
	// responses:
	//   '200':
	//     description: Session
	//     schema:
	//       "$ref": "#/definitions/SessionResponse"
	//   '400':
	//     description: bad request
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '401':
	//     description: credentials are rejected
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '502':
	//     description: backend is unavailable
	//     schema:
	//       "$ref": "#/definitions/Error"

	var req LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.flow.Login(r.Context(), req.FirstName, req.Password)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	s.reset(sess.User.ID)

	u := toUser(sess.User)
	writeOK(w, http.StatusOK, SessionResponse{Screen: string(auth.FeedScreen), User: &u})
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /logout Session Logout
	//
	// Clears the session.
	//
	// ---
	// produces:
	// - application/json
	// responses:
	//   '200':
	//     description: Session
	//     schema:
	//       "$ref": "#/definitions/SessionResponse"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	if err := s.flow.Logout(r.Context()); err != nil {
		writeInternalErrorf(r.Context(), w, "failed to logout: %s", err.Error())
		return
	}

	s.reset("")

	writeOK(w, http.StatusOK, SessionResponse{Screen: string(auth.LoginScreen)})
}

func (s *server) listUsers(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /users Session ListUsers
	//
	// Returns the account directory for the login screen.
	//
	// ---
	// produces:
	// - application/json
	// responses:
	//   '200':
	//     description: Users
	//     schema:
	//       "$ref": "#/definitions/UsersResponse"
	//   '502':
	//     description: backend is unavailable
	//     schema:
	//       "$ref": "#/definitions/Error"

	users, err := s.flow.Users(r.Context())
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	resp := UsersResponse{Users: make([]User, len(users))}
	for i, v := range users {
		resp.Users[i] = toUser(v)
	}

	writeOK(w, http.StatusOK, resp)
}

func (s *server) getPost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts/{id} Posts GetPost
	//
	// Loads a post for the single post view.
	//
	// ---
	// produces:
	// - application/json
	// parameters:
	// - name: id
	//   in: path
	//   required: true
	//   type: string
	// responses:
	//   '200':
	//     description: Post
	//     schema:
	//       "$ref": "#/definitions/PostResponse"
	//   '401':
	//     description: no session
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '404':
	//     description: post not found
	//     schema:
	//       "$ref": "#/definitions/Error"

	st, err := s.registry.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	writeOK(w, http.StatusOK, PostResponse{Post: toPost(st.Snapshot().Post, viewerFromContext(r.Context()))})
}

func (s *server) likePost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts/{id}/like Posts LikePost
	//
	// Toggles like of the current user. Like state in response is taken from the backend.
	//
	// ---
	// produces:
	// - application/json
	// parameters:
	// - name: id
	//   in: path
	//   required: true
	//   type: string
	// responses:
	//   '200':
	//     description: Post
	//     schema:
	//       "$ref": "#/definitions/PostResponse"
	//   '401':
	//     description: no session
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '502':
	//     description: backend is unavailable
	//     schema:
	//       "$ref": "#/definitions/Error"

	st, err := s.postState(r)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	if err := st.Like(r.Context()); err != nil {
		writeAPIError(w, r, err)
		return
	}

	writeOK(w, http.StatusOK, PostResponse{Post: toPost(st.Snapshot().Post, viewerFromContext(r.Context()))})
}

func (s *server) addComment(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts/{id}/comments Posts AddComment
	//
	// Adds a comment and returns the reloaded post.
	//
	// ---
	// consumes:
	// - application/json
	// produces:
	// - application/json
	// parameters:
	// - name: id
	//   in: path
	//   required: true
	//   type: string
	// - name: request
	//   in: body
	//   required: true
	//   schema:
	//     "$ref": "#/definitions/CommentRequest"
	// responses:
	//   '201':
	//     description: Comment and the reloaded post
	//     schema:
	//       "$ref": "#/definitions/CommentResponse"
	//   '400':
	//     description: empty comment
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '401':
	//     description: no session
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '502':
	//     description: backend is unavailable
	//     schema:
	//       "$ref": "#/definitions/Error"

	var req CommentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := s.postState(r)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	c, err := st.SubmitComment(r.Context(), req.Content)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	writeOK(w, http.StatusCreated, CommentResponse{
		Comment: toComment(*c),
		Post:    toPost(st.Snapshot().Post, viewerFromContext(r.Context())),
	})
}

// postState returns known state of the post or loads it.
func (s *server) postState(r *http.Request) (*interaction.PostState, error) {
	id := chi.URLParam(r, "id")
	if id == "" {
		return nil, api.NewError(api.ErrValidation, "", errors.New("empty post id"))
	}

	if st, ok := s.registry.Get(id); ok {
		return st, nil
	}

	return s.registry.Open(r.Context(), id)
}
