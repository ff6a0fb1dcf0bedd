package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRealtimeStreamEmitsViewChangeEvents(t *testing.T) {
	handler, issuer, _ := newTestHandler(t)
	token := issueTestToken(t, issuer)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	streamRequest, err := http.NewRequest(http.MethodGet, server.URL+"/views/stream?access_token="+token+"&entity_id=entity-1", http.NoBody)
	if err != nil {
		t.Fatalf("failed to construct stream request: %v", err)
	}
	streamResp, err := http.DefaultClient.Do(streamRequest)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() {
		_ = streamResp.Body.Close()
	})
	if streamResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected stream status: %d", streamResp.StatusCode)
	}
	if contentType := streamResp.Header.Get("Content-Type"); contentType != "text/event-stream" {
		t.Fatalf("unexpected content type: %s", contentType)
	}

	streamReader := bufio.NewReader(streamResp.Body)

	// Give the subscription a moment to register before appending.
	time.Sleep(50 * time.Millisecond)

	appendPayload := `{"changes":[{"entity_id":"entity-1","view_name":"balance","op":"counter_incremented","payload":{"op":"counter_incremented","by":3}}]}`
	appendReq, err := http.NewRequest(http.MethodPost, server.URL+"/views/changes", bytes.NewBufferString(appendPayload))
	if err != nil {
		t.Fatalf("failed to construct append request: %v", err)
	}
	appendReq.Header.Set("Authorization", "Bearer "+token)
	appendReq.Header.Set("Content-Type", "application/json")
	appendResp, err := http.DefaultClient.Do(appendReq)
	if err != nil {
		t.Fatalf("append request failed: %v", err)
	}
	_ = appendResp.Body.Close()
	if appendResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected append status: %d", appendResp.StatusCode)
	}

	type eventPayload struct {
		ViewNames []string `json:"viewNames"`
	}

	currentEventType := ""
	deadline := time.After(5 * time.Second)
	type readResult struct {
		line string
		err  error
	}
	for {
		resultCh := make(chan readResult, 1)
		go func() {
			line, err := streamReader.ReadString('\n')
			resultCh <- readResult{line: line, err: err}
		}()
		select {
		case <-deadline:
			t.Fatal("timed out waiting for realtime event")
		case res := <-resultCh:
			if res.err != nil {
				t.Fatalf("failed to read stream: %v", res.err)
			}
			line := strings.TrimSpace(res.line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "event:") {
				currentEventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			if currentEventType != RealtimeEventViewChanged {
				continue
			}
			dataJSON := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			var payload eventPayload
			if err := json.Unmarshal([]byte(dataJSON), &payload); err != nil {
				t.Fatalf("failed to decode event payload: %v", err)
			}
			if len(payload.ViewNames) == 0 || payload.ViewNames[0] != "balance" {
				t.Fatalf("unexpected view names: %#v", payload.ViewNames)
			}
			return
		}
	}
}

func TestRealtimeStreamRequiresToken(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	request := httptest.NewRequest(http.MethodGet, "/views/stream?entity_id=entity-1", http.NoBody)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", recorder.Code)
	}
}

func TestRealtimeStreamRequiresEntityID(t *testing.T) {
	handler, issuer, _ := newTestHandler(t)
	token := issueTestToken(t, issuer)

	request := httptest.NewRequest(http.MethodGet, "/views/stream?access_token="+token, http.NoBody)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without entity id, got %d", recorder.Code)
	}
}
