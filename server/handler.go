// Package server exposes the chat history store over a local REST API used by the
// browser widget.
package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"epictech-chat/archive"
	"epictech-chat/chat"
	"epictech-chat/db"
	"epictech-chat/utils"
)

// Store is the subset of the database served over HTTP
type Store interface {
	archive.Store
	DeleteConversation(ctx context.Context, id int64) error
	RenameConversation(ctx context.Context, id int64, title string) error
	GetMessage(ctx context.Context, id int64) (*db.Message, error)
	DeleteMessage(ctx context.Context, id int64) error
	GetFile(ctx context.Context, id int64) (*db.File, error)
	SearchMessages(ctx context.Context, query string, limit int) ([]db.SearchResult, error)
	GetStats(ctx context.Context) (*db.Stats, error)
}

var _ Store = (*db.DB)(nil)

// Handler holds the dependencies of the HTTP handlers
type Handler struct {
	store   Store
	chat    *chat.Service
	product string
}

// NewHandler creates a handler. product prefixes export file names.
func NewHandler(store Store, chatService *chat.Service, product string) *Handler {
	return &Handler{store: store, chat: chatService, product: product}
}

// CreateConversationRequest is the body of POST /conversations
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// UpdateConversationRequest is the body of PUT /conversations/:id
type UpdateConversationRequest struct {
	Title string `json:"title" binding:"required"`
}

// AddMessageRequest is the JSON body of POST /messages
type AddMessageRequest struct {
	ConversationID int64  `json:"conversation_id" form:"conversation_id" binding:"required"`
	Content        string `json:"content" form:"content"`
	Role           string `json:"role" form:"role"`
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Message        string `json:"message"`
	Personality    string `json:"personality"`
}

// ConversationDetail is a conversation with its messages
type ConversationDetail struct {
	db.Conversation
	Messages []db.Message `json:"messages"`
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

// Health reports liveness and the schema version
func (h *Handler) Health(c *gin.Context) {
	version, err := h.store.SchemaVersion(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"status": "ok", "schemaVersion": version})
}

// ListConversations handles GET /conversations
func (h *Handler) ListConversations(c *gin.Context) {
	convs, err := h.store.GetConversations(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, convs)
}

// CreateConversation handles POST /conversations
func (h *Handler) CreateConversation(c *gin.Context) {
	var req CreateConversationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	id, err := h.store.CreateConversation(ctx, req.Title)
	if err != nil {
		Error(c, err)
		return
	}
	conv, err := h.store.GetConversation(ctx, id)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, conv)
}

// GetConversation handles GET /conversations/:id
func (h *Handler) GetConversation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	conv, err := h.store.GetConversation(ctx, id)
	if err != nil {
		Error(c, err)
		return
	}
	if conv == nil {
		NotFound(c, "conversation not found")
		return
	}

	messages, err := h.store.GetMessages(ctx, id)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, ConversationDetail{Conversation: *conv, Messages: messages})
}

// UpdateConversation handles PUT /conversations/:id
func (h *Handler) UpdateConversation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	if err := h.store.RenameConversation(ctx, id, req.Title); err != nil {
		Error(c, err)
		return
	}
	conv, err := h.store.GetConversation(ctx, id)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, conv)
}

// DeleteConversation handles DELETE /conversations/:id
func (h *Handler) DeleteConversation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteConversation(c.Request.Context(), id); err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"id": id})
}

// ListMessages handles GET /conversations/:id/messages
func (h *Handler) ListMessages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	messages, err := h.store.GetMessages(c.Request.Context(), id)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, messages)
}

// AddMessage handles POST /messages. It accepts JSON, or multipart form data carrying
// attachments in the "files" field.
func (h *Handler) AddMessage(c *gin.Context) {
	var req AddMessageRequest
	var files []db.FileInput

	if c.ContentType() == "multipart/form-data" {
		if err := c.ShouldBind(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
		form, err := c.MultipartForm()
		if err != nil {
			BadRequest(c, err.Error())
			return
		}
		for _, fh := range form.File["files"] {
			if fh.Size > utils.MaxAttachmentSize {
				Error(c, fmt.Errorf("%w: %s", utils.ErrFileTooLarge, fh.Filename))
				return
			}
			f, err := fh.Open()
			if err != nil {
				BadRequest(c, err.Error())
				return
			}
			att, err := utils.ReadAttachment(fh.Filename, f)
			f.Close()
			if err != nil {
				Error(c, err)
				return
			}
			if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
				att.Type = ct
			}
			files = append(files, att)
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	sender := req.Role
	switch sender {
	case "":
		sender = db.SenderUser
	case "assistant":
		sender = db.SenderAI
	}

	ctx := c.Request.Context()
	id, err := h.store.AddMessage(ctx, req.ConversationID, req.Content, sender, files)
	if err != nil {
		Error(c, err)
		return
	}
	msg, err := h.store.GetMessage(ctx, id)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, msg)
}

// DeleteMessage handles DELETE /messages/:id
func (h *Handler) DeleteMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteMessage(c.Request.Context(), id); err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"id": id})
}

// ListFiles handles GET /messages/:id/files. Only metadata is returned.
func (h *Handler) ListFiles(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	files, err := h.store.GetFilesForMessage(c.Request.Context(), id)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, files)
}

// DownloadFile handles GET /files/:id and streams the attachment contents
func (h *Handler) DownloadFile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	f, err := h.store.GetFile(c.Request.Context(), id)
	if err != nil {
		Error(c, err)
		return
	}
	if f == nil {
		NotFound(c, "file not found")
		return
	}

	contentType := f.Type
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	c.Data(http.StatusOK, contentType, f.Data)
}

// Export handles GET /export and returns the whole store as a download
func (h *Handler) Export(c *gin.Context) {
	doc, err := archive.Export(c.Request.Context(), h.store)
	if err != nil {
		Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := archive.Encode(&buf, doc); err != nil {
		Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.FileName(h.product, time.Now())))
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

// Import handles POST /conversations/import
func (h *Handler) Import(c *gin.Context) {
	doc, err := archive.Decode(c.Request.Body)
	if err != nil {
		Error(c, err)
		return
	}
	n, err := archive.Import(c.Request.Context(), h.store, doc)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"imported": n})
}

// Chat handles POST /chat
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	resp, err := h.chat.Send(c.Request.Context(), chat.SendRequest{
		ConversationID: req.ConversationID,
		Text:           req.Message,
		Personality:    req.Personality,
	})
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, resp)
}

// Search handles GET /search?q=&limit=
func (h *Handler) Search(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		BadRequest(c, "invalid limit")
		return
	}
	results, err := h.store.SearchMessages(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, results)
}

// Stats handles GET /stats
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.store.GetStats(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, stats)
}
