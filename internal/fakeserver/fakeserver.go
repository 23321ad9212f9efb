// Package fakeserver is an in-process stand-in for the Vertex AI publisher model endpoints,
// used by tests of the gemini client and the CLI.
//
// Responses are scripted per API method and written as caller-chosen fragments with a flush
// after each one, so tests control exactly how the body is split on the wire. Every request
// is recorded.
package fakeserver

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// RecordedRequest is one request received by the server.
type RecordedRequest struct {
	// APIMethod is the part after the colon, e.g. streamGenerateContent.
	APIMethod  string
	APIVersion string
	Project    string
	Location   string
	Model      string
	Query      url.Values
	Header     http.Header
	Token      string
	Body       []byte
}

// Response is one scripted answer.
type Response struct {
	Status      int
	ContentType string
	// Fragments are written in order, each followed by a flush.
	Fragments []string
	// Delay is slept before every fragment.
	Delay time.Duration
	// Hold, when set, keeps the connection open after the last fragment until it is closed
	// or the client goes away.
	Hold chan struct{}
}

// SSE scripts a text/event-stream response with one "data: ...\r\n\r\n" event per payload,
// one fragment per event.
func SSE(payloads ...string) Response {
	fragments := make([]string, len(payloads))
	for i, payload := range payloads {
		fragments[i] = "data: " + payload + "\r\n\r\n"
	}
	return Response{Status: http.StatusOK, ContentType: "text/event-stream", Fragments: fragments}
}

// Raw scripts a response from explicit fragments.
func Raw(status int, contentType string, fragments ...string) Response {
	return Response{Status: status, ContentType: contentType, Fragments: fragments}
}

// WholeBody scripts the application/json array form of streamGenerateContent.
func WholeBody(chunks ...string) Response {
	return JSON(http.StatusOK, "["+strings.Join(chunks, ",\r\n")+"]")
}

// JSON scripts a single JSON body.
func JSON(status int, body string) Response {
	return Response{Status: status, ContentType: "application/json; charset=UTF-8", Fragments: []string{body}}
}

// Error scripts a Google error envelope.
func Error(status int, canonical, message string) Response {
	return JSON(status, fmt.Sprintf(`{"error":{"code":%d,"message":%q,"status":%q}}`, status, message, canonical))
}

// Server is a running fake. Close it when done.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	scripts   map[string][]Response
	requests  []RecordedRequest
	wantToken string
}

// New starts a server. With a non-empty token, requests carrying any other bearer token get
// a 401 envelope.
func New(token string) *Server {
	s := &Server{scripts: map[string][]Response{}, wantToken: token}

	router := mux.NewRouter()
	router.Use(s.bearerToken)
	router.HandleFunc("/{version}/projects/{project}/locations/{location}/publishers/google/models/{model:[^/:]+}:{method}", s.serve).
		Methods(http.MethodPost)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, r, Error(http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path))
	})

	s.Server = httptest.NewServer(router)
	return s
}

// Script queues responses for an API method. Each request consumes one; the last one is
// reused once the queue is down to it.
func (s *Server) Script(method string, responses ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[method] = append(s.scripts[method], responses...)
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// LastRequest returns the most recent request, or the zero value.
func (s *Server) LastRequest() RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return RecordedRequest{}
	}
	return s.requests[len(s.requests)-1]
}

func (s *Server) bearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if s.wantToken != "" && token != s.wantToken {
			writeResponse(w, r, Error(http.StatusUnauthorized, "UNAUTHENTICATED", "Request had invalid authentication credentials."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	body, _ := io.ReadAll(r.Body)
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		APIMethod:  vars["method"],
		APIVersion: vars["version"],
		Project:    vars["project"],
		Location:   vars["location"],
		Model:      vars["model"],
		Query:      r.URL.Query(),
		Header:     r.Header.Clone(),
		Token:      token,
		Body:       body,
	})
	response, ok := s.next(vars["method"])
	s.mu.Unlock()

	if !ok {
		response = Error(http.StatusNotFound, "NOT_FOUND", "nothing scripted for "+vars["method"])
	}
	writeResponse(w, r, response)
}

// next pops the head of a method's queue. Callers hold mu.
func (s *Server) next(method string) (Response, bool) {
	queue := s.scripts[method]
	if len(queue) == 0 {
		return Response{}, false
	}
	response := queue[0]
	if len(queue) > 1 {
		s.scripts[method] = queue[1:]
	}
	return response, true
}

func writeResponse(w http.ResponseWriter, r *http.Request, response Response) {
	if response.ContentType != "" {
		w.Header().Set("Content-Type", response.ContentType)
	}
	status := response.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	for _, fragment := range response.Fragments {
		if response.Delay > 0 {
			select {
			case <-time.After(response.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if _, err := io.WriteString(w, fragment); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	if response.Hold != nil {
		select {
		case <-response.Hold:
		case <-r.Context().Done():
		}
	}
}
