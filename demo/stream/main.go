// Package main provides a minimal CLI demo for real-time audio analysis.
//
// It streams a raw PCM file (16kHz, 16-bit mono) through a Sentra streaming
// session at real-time pace and prints transcriptions and alerts as they
// arrive, followed by the session summary.
//
// Usage:
//
//	go run demo/stream/main.go <pcm-file>
//
// Environment variables:
//
//	SENTRA_API_KEY  - Required
//	SENTRA_BASE_URL - Optional API base URL override
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	sentra "github.com/sentra-ai/sentra-go/sdk"
)

const (
	sampleRate = 16000
	// 100ms of 16-bit mono audio per frame.
	chunkBytes = sampleRate * 2 / 10
)

func main() {
	_ = godotenv.Load()

	if os.Getenv("SENTRA_API_KEY") == "" {
		log.Fatal("SENTRA_API_KEY required")
	}
	if len(os.Args) < 2 {
		log.Fatal("usage: go run demo/stream/main.go <pcm-file>")
	}

	audio, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read audio file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	opts := []sentra.ClientOption{}
	if baseURL := os.Getenv("SENTRA_BASE_URL"); baseURL != "" {
		opts = append(opts, sentra.WithBaseURL(baseURL))
	}
	client := sentra.NewClient(opts...)

	session, err := client.Stream.Connect(ctx, &sentra.StreamRequest{
		Config: &sentra.StreamConfig{
			IntervalSeconds: sentra.Int(10),
			AnalysisTypes:   []string{"bullying", "grooming", "distress"},
		},
		Handlers: sentra.StreamHandlers{
			OnTranscription: func(e sentra.TranscriptionEvent) {
				fmt.Printf("[TRANSCRIPT #%d] %s\n", e.FlushIndex, e.Text)
			},
			OnAlert: func(e sentra.AlertEvent) {
				fmt.Printf("[ALERT #%d] %s severity=%s risk=%.2f\n", e.FlushIndex, e.Category, e.Severity, e.RiskScore)
			},
			OnError: func(e sentra.ErrorEvent) {
				fmt.Printf("[ERROR] %s: %s\n", e.Code, e.Message)
			},
			OnClose: func(code int, reason string) {
				fmt.Printf("[CLOSED] %d %s\n", code, reason)
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to start streaming session: %v", err)
	}
	defer session.Close()

	fmt.Printf("Session %s active, streaming %d bytes of audio...\n", session.ID(), len(audio))

	// Pace the file like a live microphone: one chunk every 100ms.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

pump:
	for offset := 0; offset < len(audio); offset += chunkBytes {
		select {
		case <-ctx.Done():
			break pump
		case <-ticker.C:
		}

		end := offset + chunkBytes
		if end > len(audio) {
			end = len(audio)
		}
		if err := session.SendAudio(audio[offset:end]); err != nil {
			log.Fatalf("Failed to send audio: %v", err)
		}
	}

	summary, err := session.End(ctx)
	if err != nil {
		log.Fatalf("Failed to end session: %v", err)
	}

	fmt.Println()
	fmt.Printf("Session summary for %s:\n", summary.SessionID)
	fmt.Printf("  duration: %.1fs over %d flushes\n", summary.DurationSeconds, summary.TotalFlushes)
	fmt.Printf("  overall risk: %s (%.2f)\n", summary.OverallRisk, summary.OverallRiskScore)
	if summary.Transcript != "" {
		fmt.Printf("  transcript: %s\n", summary.Transcript)
	}
}
