package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harborlight/inquiro/internal/chunking"
	"github.com/harborlight/inquiro/internal/httpclient"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
)

const (
	maxAttachmentBytes   = 16 << 20
	attachmentFetchLimit = 30 * time.Second
)

// ChatHandler serves conversation threads and streaming generation
type ChatHandler struct {
	chat       interfaces.ChatService
	extractor  *chunking.Extractor
	httpClient *http.Client
	logger     arbor.ILogger
}

func NewChatHandler(chat interfaces.ChatService, logger arbor.ILogger) *ChatHandler {
	return &ChatHandler{
		chat:       chat,
		extractor:  chunking.NewExtractor(),
		httpClient: httpclient.NewDefaultHTTPClient(attachmentFetchLimit),
		logger:     logger,
	}
}

// HandleThreads dispatches /chat: POST creates a thread, GET lists them
func (h *ChatHandler) HandleThreads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createThread(w, r)
	case http.MethodGet:
		h.listThreads(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleThreadByID dispatches /chat/{id} and its sub-resources
// {id}/generate and {id}/archive
func (h *ChatHandler) HandleThreadByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/chat/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		WriteError(w, http.StatusBadRequest, "thread id is required")
		return
	}

	if len(parts) == 2 && parts[1] != "" {
		switch parts[1] {
		case "generate":
			if !RequireMethod(w, r, "POST") {
				return
			}
			h.generate(w, r, id)
		case "archive":
			if !RequireMethod(w, r, "POST") {
				return
			}
			h.archiveThread(w, r, id)
		default:
			WriteError(w, http.StatusNotFound, "unknown thread resource")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getThread(w, r, id)
	case http.MethodDelete:
		h.deleteThread(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// createThread opens a thread over an engine. Multipart bodies may attach
// files (chat_file) or fetchable URLs (chat_file_url) that become part of the
// thread's context.
func (h *ChatHandler) createThread(w http.ResponseWriter, r *http.Request) {
	var engineID, userID, llmType string
	var attachments []models.SourceDocument

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
			return
		}
		engineID = r.FormValue("engine_id")
		userID = r.FormValue("user_id")
		llmType = r.FormValue("llm_type")

		var err error
		attachments, err = h.parseAttachments(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		var request struct {
			EngineID string `json:"engine_id"`
			UserID   string `json:"user_id"`
			LLMType  string `json:"llm_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		engineID, userID, llmType = request.EngineID, request.UserID, request.LLMType
	}

	if engineID == "" {
		WriteError(w, http.StatusBadRequest, "engine_id is required")
		return
	}

	thread, err := h.chat.CreateThread(r.Context(), engineID, userID, llmType, attachments)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{"thread": thread})
}

func (h *ChatHandler) listThreads(w http.ResponseWriter, r *http.Request) {
	limit, offset := GetPaginationParams(r)
	threads, err := h.chat.ListThreads(r.Context(), r.URL.Query().Get("user_id"), limit, offset)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"threads": threads,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *ChatHandler) getThread(w http.ResponseWriter, r *http.Request, id string) {
	thread, err := h.chat.GetThread(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"thread": thread})
}

func (h *ChatHandler) archiveThread(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.chat.ArchiveThread(r.Context(), id); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "id": id})
}

func (h *ChatHandler) deleteThread(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.chat.DeleteThread(r.Context(), id); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "id": id})
}

// generate streams one turn as chunked plain text. Deltas are written as they
// arrive; the stream ends with "\n[DONE]" on success or "\n[ERROR] <reason>"
// on failure. Attachments arrive as multipart uploads alongside the prompt.
func (h *ChatHandler) generate(w http.ResponseWriter, r *http.Request, id string) {
	turn, err := h.parseGenerateRequest(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(turn.Prompt) == "" {
		WriteError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	stream, err := h.chat.Generate(r.Context(), id, turn)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	streamTurn(w, stream)
}

// parseGenerateRequest reads the turn input. JSON bodies carry prompt,
// llm_type and query_filter; multipart bodies add attachments.
func (h *ChatHandler) parseGenerateRequest(r *http.Request) (*interfaces.TurnRequest, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var request struct {
			Prompt  string `json:"prompt"`
			LLMType string `json:"llm_type"`
			Filter  string `json:"query_filter"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		return &interfaces.TurnRequest{
			Prompt:  request.Prompt,
			LLMType: request.LLMType,
			Filter:  request.Filter,
		}, nil
	}

	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart body: %w", err)
	}
	attachments, err := h.parseAttachments(r)
	if err != nil {
		return nil, err
	}
	return &interfaces.TurnRequest{
		Prompt:      r.FormValue("prompt"),
		LLMType:     r.FormValue("llm_type"),
		Filter:      r.FormValue("query_filter"),
		Attachments: attachments,
	}, nil
}

// parseAttachments extracts documents from uploaded files (chat_file) and
// fetchable URLs (chat_file_url). The form must already be parsed.
func (h *ChatHandler) parseAttachments(r *http.Request) ([]models.SourceDocument, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	var attachments []models.SourceDocument
	for _, header := range r.MultipartForm.File["chat_file"] {
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %q: %w", header.Filename, err)
		}
		content, err := io.ReadAll(io.LimitReader(file, maxAttachmentBytes))
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %q: %w", header.Filename, err)
		}

		attachment, err := h.extractAttachment(header.Filename, content, "")
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, *attachment)
	}

	for _, rawURL := range r.MultipartForm.Value["chat_file_url"] {
		rawURL = strings.TrimSpace(rawURL)
		if rawURL == "" {
			continue
		}
		attachment, err := h.fetchAttachment(r, rawURL)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, *attachment)
	}
	return attachments, nil
}

// fetchAttachment downloads a chat_file_url and extracts it like an upload
func (h *ChatHandler) fetchAttachment(r *http.Request, rawURL string) (*models.SourceDocument, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid attachment url %q: %w", rawURL, err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attachment %q: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("attachment %q returned status %d", rawURL, resp.StatusCode)
	}
	content, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment %q: %w", rawURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	return h.extractAttachment(rawURL, content, contentType)
}

// extractAttachment converts raw bytes into a source document, dispatching on
// content type for fetched URLs and on extension otherwise
func (h *ChatHandler) extractAttachment(name string, content []byte, contentType string) (*models.SourceDocument, error) {
	var extracted *chunking.ExtractedDoc
	var err error
	if strings.Contains(contentType, "text/html") {
		extracted, err = h.extractor.ExtractHTML(name, content, false)
	} else {
		extracted, err = h.extractor.Extract(name, content, false)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extract attachment %q: %w", name, err)
	}

	title := extracted.Title
	if title == "" {
		title = name
	}
	return &models.SourceDocument{
		URL:      name,
		Title:    title,
		Segments: extracted.Segments,
		Metadata: extracted.Metadata,
	}, nil
}
