package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/harborlight/inquiro/internal/engines"
	"github.com/harborlight/inquiro/internal/interfaces"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
)

// EngineHandler serves the query engine API: lifecycle, builds, retrieval
// and question-answering turns
type EngineHandler struct {
	registry   *engines.Registry
	dispatcher interfaces.SearchService
	chat       interfaces.ChatService
	storage    interfaces.StorageManager
	logger     arbor.ILogger
}

func NewEngineHandler(
	registry *engines.Registry,
	dispatcher interfaces.SearchService,
	chat interfaces.ChatService,
	storage interfaces.StorageManager,
	logger arbor.ILogger,
) *EngineHandler {
	return &EngineHandler{
		registry:   registry,
		dispatcher: dispatcher,
		chat:       chat,
		storage:    storage,
		logger:     logger,
	}
}

// createEngineRequest is the wire shape of an engine definition
type createEngineRequest struct {
	Name          string                 `json:"query_engine"`
	Type          models.EngineType      `json:"query_engine_type"`
	DocURL        string                 `json:"doc_url"`
	EmbeddingType string                 `json:"embedding_type"`
	Description   string                 `json:"description"`
	VectorStore   models.VectorStoreKind `json:"vector_store,omitempty"`
	CreatedBy     string                 `json:"created_by,omitempty"`
	IsPublic      bool                   `json:"is_public,omitempty"`
	Params        *models.EngineParams   `json:"params,omitempty"`
}

// askRequest opens a new thread on an engine and runs one turn synchronously
type askRequest struct {
	Prompt  string `json:"prompt"`
	LLMType string `json:"llm_type"`
	UserID  string `json:"user_id,omitempty"`
	Filter  string `json:"query_filter,omitempty"`
}

// resumeRequest continues an existing thread; Stream selects chunked output
type resumeRequest struct {
	Prompt  string `json:"prompt"`
	LLMType string `json:"llm_type,omitempty"`
	Stream  bool   `json:"stream,omitempty"`
	Filter  string `json:"query_filter,omitempty"`
}

// HandleQueryList handles /query: GET lists engines
func (h *EngineHandler) HandleQueryList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	h.listEngines(w, r)
}

// HandleQueryRoutes dispatches everything under /query/:
//
//	POST   /query/engine             create engine + enqueue build
//	GET    /query/engine/{id}        fetch engine
//	PUT    /query/engine/{id}        update description/params
//	DELETE /query/engine/{id}        soft-delete cascade
//	POST   /query/engine/{id}        ask: new thread + one synchronous turn
//	POST   /query/engine/{id}/build  re-enqueue a build
//	POST   /query/engine/{id}/search retrieval only, no generation
//	POST   /query/{id}               resume a thread (optionally streaming)
func (h *EngineHandler) HandleQueryRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/query/")

	if rest == "engine" {
		if !RequireMethod(w, r, "POST") {
			return
		}
		h.createEngine(w, r)
		return
	}

	if idRest, ok := strings.CutPrefix(rest, "engine/"); ok {
		parts := strings.SplitN(idRest, "/", 2)
		id := parts[0]
		if id == "" {
			WriteError(w, http.StatusBadRequest, "engine id is required")
			return
		}

		if len(parts) == 2 && parts[1] != "" {
			switch parts[1] {
			case "build":
				if !RequireMethod(w, r, "POST") {
					return
				}
				h.rebuildEngine(w, r, id)
			case "search":
				if !RequireMethod(w, r, "POST") {
					return
				}
				h.searchEngine(w, r, id)
			default:
				WriteError(w, http.StatusNotFound, "unknown engine resource")
			}
			return
		}

		switch r.Method {
		case http.MethodGet:
			h.getEngine(w, r, id)
		case http.MethodPut:
			h.updateEngine(w, r, id)
		case http.MethodDelete:
			h.deleteEngine(w, r, id)
		case http.MethodPost:
			h.askEngine(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// /query/{id} resumes an existing thread
	threadID := strings.SplitN(rest, "/", 2)[0]
	if threadID == "" {
		WriteError(w, http.StatusBadRequest, "thread id is required")
		return
	}
	if !RequireMethod(w, r, "POST") {
		return
	}
	h.resumeThread(w, r, threadID)
}

// createEngine accepts the engine definition and returns 202 with the engine
// and, for content engines, the enqueued build job
func (h *EngineHandler) createEngine(w http.ResponseWriter, r *http.Request) {
	var request createEngineRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	engine := models.QueryEngine{
		Name:          request.Name,
		Type:          request.Type,
		DocURL:        request.DocURL,
		EmbeddingType: request.EmbeddingType,
		Description:   request.Description,
		VectorStore:   request.VectorStore,
		CreatedBy:     request.CreatedBy,
		IsPublic:      request.IsPublic,
	}
	if request.Params != nil {
		engine.Params = *request.Params
	}

	created, job, err := h.registry.Create(r.Context(), &engine)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	response := map[string]interface{}{"engine": created}
	if job != nil {
		response["job_id"] = job.ID
	}
	WriteJSON(w, http.StatusAccepted, response)
}

func (h *EngineHandler) listEngines(w http.ResponseWriter, r *http.Request) {
	limit, offset := GetPaginationParams(r)
	list, err := h.registry.List(r.Context(), limit, offset)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	total, err := h.storage.EngineStorage().CountEngines(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"engines": list,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *EngineHandler) getEngine(w http.ResponseWriter, r *http.Request, id string) {
	engine, err := h.registry.Get(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	docs, _ := h.storage.DocumentStorage().CountDocumentsByEngine(r.Context(), id)
	chunks, _ := h.storage.DocumentStorage().CountChunksByEngine(r.Context(), id)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"engine":         engine,
		"document_count": docs,
		"chunk_count":    chunks,
	})
}

func (h *EngineHandler) updateEngine(w http.ResponseWriter, r *http.Request, id string) {
	var update engines.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	engine, err := h.registry.Update(r.Context(), id, &update)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"engine": engine})
}

func (h *EngineHandler) deleteEngine(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.registry.Delete(r.Context(), id); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"id":     id,
	})
}

// searchEngine runs the retrieval pipeline only and returns raw references
func (h *EngineHandler) searchEngine(w http.ResponseWriter, r *http.Request, id string) {
	var request models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(request.Text) == "" {
		WriteError(w, http.StatusBadRequest, "query text is required")
		return
	}

	result, err := h.dispatcher.Query(r.Context(), id, &request)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (h *EngineHandler) rebuildEngine(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.registry.Rebuild(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "started",
		"job_id": job.ID,
	})
}

// askEngine opens a new thread on the engine and answers one prompt
// synchronously, returning the thread id for follow-up turns
func (h *EngineHandler) askEngine(w http.ResponseWriter, r *http.Request, id string) {
	var request askRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(request.Prompt) == "" {
		WriteError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	thread, err := h.chat.CreateThread(r.Context(), id, request.UserID, request.LLMType, nil)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	h.completeTurn(w, r, thread.ID, &interfaces.TurnRequest{
		Prompt: request.Prompt,
		Filter: request.Filter,
	})
}

// resumeThread runs the next turn on an existing thread; stream=true switches
// to a chunked byte stream terminated by "\n[DONE]"
func (h *EngineHandler) resumeThread(w http.ResponseWriter, r *http.Request, threadID string) {
	var request resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(request.Prompt) == "" {
		WriteError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	turn := &interfaces.TurnRequest{
		Prompt:  request.Prompt,
		LLMType: request.LLMType,
		Filter:  request.Filter,
	}

	if request.Stream {
		stream, err := h.chat.Generate(r.Context(), threadID, turn)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		streamTurn(w, stream)
		return
	}

	h.completeTurn(w, r, threadID, turn)
}

// completeTurn runs one generation to completion and returns the answer with
// the updated history. Provider failures surface as an error turn in the
// history, not a transport failure.
func (h *EngineHandler) completeTurn(w http.ResponseWriter, r *http.Request, threadID string, turn *interfaces.TurnRequest) {
	stream, err := h.chat.Generate(r.Context(), threadID, turn)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	answer, genErr := collectTurn(stream)

	thread, err := h.chat.GetThread(r.Context(), threadID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	response := map[string]interface{}{
		"query_id":   thread.ID,
		"response":   answer,
		"references": lastReferences(thread.History),
		"history":    thread.History,
	}
	if genErr != nil {
		response["error"] = genErr.Error()
	}
	WriteJSON(w, http.StatusOK, response)
}
