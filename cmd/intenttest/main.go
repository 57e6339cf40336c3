package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"

	"github.com/harborhealth/telecare-ai-platform/cmd/mainconfig"
	"github.com/harborhealth/telecare-ai-platform/internal/booking"
	appconfig "github.com/harborhealth/telecare-ai-platform/internal/config"
	"github.com/harborhealth/telecare-ai-platform/internal/intent"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

// Sends one hand-written patient message through the live intent parser so
// prompt or model changes can be checked without standing up the full stack.
//
//	go run ./cmd/intenttest "can I come in tuesday morning instead?"
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	if cfg.BedrockModelID == "" {
		log.Fatal("BEDROCK_MODEL_ID is required")
	}
	logger := logging.New("debug")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	message := "Hi, I'd like to book a video visit sometime Tuesday morning if possible"
	if len(os.Args) > 1 {
		message = strings.Join(os.Args[1:], " ")
	}

	candidates := []string{
		"Tue Mar 3 9:00 AM (video)",
		"Tue Mar 3 9:30 AM (video)",
		"Tue Mar 3 2:00 PM (phone)",
		"Wed Mar 4 10:00 AM (video)",
	}

	parser := intent.NewParser(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID, logger)

	start := time.Now()
	parsed, err := parser.ParseBookingIntent(ctx, booking.IntentRequest{
		MessageText: message,
		Candidates:  candidates,
	})
	elapsed := time.Since(start)
	if err != nil {
		log.Fatalf("parse intent: %v", err)
	}

	fmt.Printf("message:    %s\n", message)
	fmt.Printf("latency:    %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("slot index: %d\n", parsed.MatchedSlotIndex)
	if parsed.RequestedTime != nil {
		fmt.Printf("requested:  %s\n", parsed.RequestedTime.Format(time.RFC3339))
	}
	fmt.Printf("visit type: %s\n", parsed.VisitType)
	fmt.Printf("confidence: %.2f\n", parsed.Confidence)
	fmt.Printf("handoff:    %v (%s)\n", parsed.NeedsHuman, parsed.Reason)
}
