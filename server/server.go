package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/spacebio/rag/internal/types"
	"github.com/spacebio/rag/pkg/llm"
	"github.com/spacebio/rag/pkg/pipeline"
	"github.com/spacebio/rag/pkg/prompt"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

type Config struct {
	Port     string
	DefaultK int
}

// Server is the thin JSON layer over the pipeline. It owns transport
// and status codes, nothing else.
type Server struct {
	config    Config
	pipeline  *pipeline.Pipeline
	retriever pipeline.Retriever
	chat      *llm.ChatEngine
	index     types.VectorIndex
}

func New(config Config, p *pipeline.Pipeline, r pipeline.Retriever, chat *llm.ChatEngine, index types.VectorIndex) *Server {
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.DefaultK == 0 {
		config.DefaultK = 4
	}
	return &Server{
		config:    config,
		pipeline:  p,
		retriever: r,
		chat:      chat,
		index:     index,
	}
}

func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/ask", s.handleAsk)
	mux.HandleFunc("/visualize", s.handleVisualize)
	mux.HandleFunc("/ws", s.handleWebSocket)

	log.Printf("Starting server on port %s", s.config.Port)
	return http.ListenAndServe(":"+s.config.Port, mux)
}

type askRequest struct {
	Question string `json:"question"`
	K        int    `json:"k"`
}

type visualizeRequest struct {
	Question   string `json:"question"`
	Mode       string `json:"mode"`
	ImageCount int    `json:"imageCount"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"chunks": s.index.Size(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeQuestion(w, r, &req) {
		return
	}
	k := req.K
	if k <= 0 {
		k = s.config.DefaultK
	}

	chunks, err := s.retriever.Retrieve(r.Context(), req.Question, k)
	if err != nil {
		writeError(w, err)
		return
	}

	results := make([]map[string]string, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, map[string]string{
			"title":   c.Title,
			"url":     c.URL,
			"section": c.Section,
			"snippet": snippet(c.Text, 500),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   req.Question,
		"k":       k,
		"results": results,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeQuestion(w, r, &req) {
		return
	}

	answer, err := s.pipeline.Ask(r.Context(), req.Question, req.K)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   req.Question,
		"answer":  answer.Text,
		"sources": answer.Sources,
	})
}

func (s *Server) handleVisualize(w http.ResponseWriter, r *http.Request) {
	var req visualizeRequest
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Question input is required"})
		return
	}
	if req.Mode == "" {
		req.Mode = string(prompt.ModeManga)
	}
	if req.ImageCount == 0 {
		req.ImageCount = 1
	}

	result, err := s.pipeline.Visualize(r.Context(), req.Question, prompt.StyleMode(req.Mode), req.ImageCount)
	if err != nil {
		writeError(w, err)
		return
	}

	images := make([][]byte, len(result.Images))
	for i, img := range result.Images {
		images[i] = img.Payload
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"mode":       req.Mode,
		"imageCount": req.ImageCount,
		"answer":     result.Answer.Text,
		"sources":    result.Answer.Sources,
		"images":     images, // base64-encoded by the JSON encoder
	})
}

type wsMessage struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var req askRequest
		if err := json.Unmarshal(message, &req); err != nil {
			s.sendMessage(conn, "error", "invalid JSON message")
			continue
		}
		if req.Question == "" {
			s.sendMessage(conn, "error", "question is required")
			continue
		}

		s.streamAnswer(conn, r, req)
	}
}

func (s *Server) streamAnswer(conn *websocket.Conn, r *http.Request, req askRequest) {
	k := req.K
	if k <= 0 {
		k = s.config.DefaultK
	}

	chunks, err := s.retriever.Retrieve(r.Context(), req.Question, k)
	if err != nil {
		s.sendMessage(conn, "error", err.Error())
		return
	}

	stream, sources, err := s.chat.GenerateStream(r.Context(), req.Question, chunks)
	if err != nil {
		s.sendMessage(conn, "error", err.Error())
		return
	}

	for chunk := range stream {
		s.sendMessage(conn, "stream", chunk)
	}

	if err := conn.WriteJSON(wsMessage{Type: "sources", Data: sources}); err != nil {
		log.Printf("Error sending sources: %v", err)
	}
	s.sendMessage(conn, "done", "")
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType, content string) {
	if err := conn.WriteJSON(wsMessage{Type: msgType, Content: content}); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func decodeQuestion(w http.ResponseWriter, r *http.Request, req *askRequest) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Question input is required"})
		return false
	}
	return true
}

// writeError maps the pipeline error taxonomy onto status codes: bad
// input 400, broken upstream 502, model-returned-nothing 502 with its
// own message so operators can tell the two apart.
func writeError(w http.ResponseWriter, err error) {
	var verr types.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error()})
		return
	}

	var uerr *types.UpstreamError
	if errors.As(err, &uerr) {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":  fmt.Sprintf("upstream failure in %s stage", uerr.Stage),
			"detail": uerr.Error(),
		})
		return
	}

	if errors.Is(err, types.ErrEmptyResult) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "model returned an empty answer"})
		return
	}

	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func snippet(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
