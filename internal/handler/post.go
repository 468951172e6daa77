package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/service"
)

// PostService is what PostHandler needs from the content service.
type PostService interface {
	CreatePost(ctx context.Context, in service.CreatePostInput) (*model.Post, error)
	GetPost(ctx context.Context, id string) (*model.Post, error)
	UpdatePost(ctx context.Context, id string, in service.UpdatePostInput) (*model.Post, error)
	DeletePost(ctx context.Context, id string) error
	ListPosts(ctx context.Context, page, limit int) (*model.PostPage, error)
	SearchPosts(ctx context.Context, query string) ([]model.Post, error)
	ListPostsByTag(ctx context.Context, tag string) ([]model.Post, error)
	AddComment(ctx context.Context, postID, authorID, content string) (*model.Comment, error)
}

// PostHandler serves /api/posts.
type PostHandler struct {
	posts  PostService
	logger *slog.Logger
}

func NewPostHandler(posts PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// Routes mounts the post endpoints on r (the /api/posts subrouter).
//
// chi matches static segments before parameters, so /search/... and
// /tag/... never reach the /{id} routes.
func (h *PostHandler) Routes(r chi.Router) {
	r.Post("/", h.HandleCreate)
	r.Get("/", h.HandleList)
	r.Get("/search/{query}", h.HandleSearch)
	r.Get("/tag/{tag}", h.HandleByTag)
	r.Get("/{id}", h.HandleGet)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	r.Post("/{id}/comments", h.HandleAddComment)
}

// HandleCreate creates a post.
//
// HTTP: POST /api/posts
// REQUEST BODY: {"title": "...", "content": "...", "authorId": "...", "tags": ["go"]}
// RESPONSE: 201 + the post; 400 invalid; 404 author not found
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.CreatePost(r.Context(), service.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: req.AuthorID,
		Tags:     req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// HandleList returns one page of posts, newest first.
//
// HTTP: GET /api/posts?page=2&limit=10
// RESPONSE: {"posts": [...], "page": 2, "totalPages": 3, "totalPosts": 25}
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", service.DefaultPage)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", service.DefaultLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.posts.ListPosts(r.Context(), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleGet returns a post and counts the view.
//
// HTTP: GET /api/posts/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleUpdate replaces title, content and tags.
//
// HTTP: PUT /api/posts/{id}
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updatePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.UpdatePost(r.Context(), chi.URLParam(r, "id"), service.UpdatePostInput{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes a post.
//
// HTTP: DELETE /api/posts/{id}
// RESPONSE: 200 {"message": "Post deleted successfully"}; 404 when nothing was removed
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.DeletePost(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Post deleted successfully"})
}

// HandleSearch runs the configured search strategy.
//
// HTTP: GET /api/posts/search/{query}
// The segment is percent-decoded before the service sees it: "No%2Bt" is the pattern "No+t".
func (h *PostHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query, err := pathParam(r, "query")
	if err != nil {
		writeError(w, err)
		return
	}

	posts, err := h.posts.SearchPosts(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleByTag lists posts carrying exactly this tag.
//
// HTTP: GET /api/posts/tag/{tag}  ("c%2B%2B" is the tag "c++")
func (h *PostHandler) HandleByTag(w http.ResponseWriter, r *http.Request) {
	tag, err := pathParam(r, "tag")
	if err != nil {
		writeError(w, err)
		return
	}

	posts, err := h.posts.ListPostsByTag(r.Context(), tag)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleAddComment appends a comment and returns only the comment.
//
// HTTP: POST /api/posts/{id}/comments
// REQUEST BODY: {"authorId": "...", "content": "..."}
// RESPONSE: 201 + the comment; 404 author or post; 400 invalid
func (h *PostHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.posts.AddComment(r.Context(), chi.URLParam(r, "id"), req.AuthorID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}
