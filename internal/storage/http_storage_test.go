package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

func testArtifact() models.Artifact {
	return models.Artifact{
		Format:   models.FormatCSV,
		Filename: "facial_analysis_20240309_140507.csv",
		MIMEType: "text/csv;charset=utf-8",
		Content:  []byte("Image Number,Filename\n1,a.jpg\n"),
	}
}

func TestWebhookSink_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int
		expectRetries int32
		expectError   bool
		errorContains string
	}{
		{
			name:          "Success on first attempt",
			responses:     []int{200},
			expectRetries: 1,
		},
		{
			name:          "Success on second attempt after 5xx",
			responses:     []int{500, 202},
			expectRetries: 2,
		},
		{
			name:          "4xx client error - no retry",
			responses:     []int{404},
			expectRetries: 1,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "4xx after 5xx - should retry until 4xx then stop",
			responses:     []int{500, 413},
			expectRetries: 2,
			expectError:   true,
			errorContains: "client error: status code 413",
		},
		{
			name:          "All 5xx errors - retry all attempts",
			responses:     []int{500, 502, 503},
			expectRetries: 3,
			expectError:   true,
			errorContains: "server error: status code 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requestCount int32
			var gotBody, gotType string

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&requestCount, 1)
				body, _ := io.ReadAll(r.Body)
				gotBody = string(body)
				gotType = r.Header.Get("Content-Type")

				if int(n) <= len(tt.responses) {
					w.WriteHeader(tt.responses[n-1])
					fmt.Fprintf(w, "status %d", tt.responses[n-1])
					return
				}
				w.WriteHeader(500)
			}))
			defer server.Close()

			sink, err := NewWebhookSink(server.URL, time.Second, time.Millisecond)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}

			location, err := sink.Publish(context.Background(), testArtifact())

			if got := atomic.LoadInt32(&requestCount); got != tt.expectRetries {
				t.Errorf("Expected %d requests, got %d", tt.expectRetries, got)
			}
			if gotBody != string(testArtifact().Content) {
				t.Errorf("Expected artifact body on every attempt, got %q", gotBody)
			}
			if gotType != "text/csv;charset=utf-8" {
				t.Errorf("Expected artifact MIME type header, got %q", gotType)
			}

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error, but got none")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', got: %s", tt.errorContains, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error, got: %s", err.Error())
				}
				if location != server.URL {
					t.Errorf("Expected location %s, got %s", server.URL, location)
				}
			}
		})
	}
}

func TestWebhookSink_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sink, err := NewWebhookSink(server.URL, time.Second, time.Hour)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = sink.Publish(ctx, testArtifact())
	if err == nil {
		t.Fatal("Expected an error")
	}
	if time.Since(start) > 10*time.Second {
		t.Errorf("Expected cancellation to stop the backoff wait")
	}
}

func TestNewWebhookSink_RequiresURL(t *testing.T) {
	if _, err := NewWebhookSink("", 0, 0); err == nil {
		t.Error("Expected an error for an empty URL")
	}
}
