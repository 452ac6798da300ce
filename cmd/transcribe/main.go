package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"intellimind/internal/asr"
	"intellimind/internal/chunking"
	"intellimind/internal/transcription"
)

func main() {
	var (
		inputFile  = flag.String("i", "", "Input audio file")
		outputFile = flag.String("o", "", "Output file (default: stdout)")
		modelDir   = flag.String("model", "", "Model directory path")
		chunkDur   = flag.Float64("chunk", 0, "Chunk duration in seconds (default: 30)")
		overlap    = flag.Float64("overlap", 0, "Overlap between chunks in seconds (default: 5, negative disables)")
		workers    = flag.Int("workers", 0, "Max concurrent segment transcriptions (default: 2)")
		format     = flag.String("format", "text", "Output format: text, json")
		verbose    = flag.Bool("v", false, "Verbose output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -i meeting.mp3 -model models/my-model\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i meeting.wav -model models/my-model -o transcript.txt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i meeting.mp3 -model models/my-model -format json\n", os.Args[0])
	}

	flag.Parse()

	if *inputFile == "" || *modelDir == "" {
		fmt.Fprintf(os.Stderr, "Error: Input file and model directory are required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if *format != "text" && *format != "json" {
		fmt.Fprintf(os.Stderr, "Error: Invalid format '%s'. Must be: text or json\n", *format)
		os.Exit(1)
	}

	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: Input file not found: %s\n", *inputFile)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Loading model from: %s\n", *modelDir)
	}

	config, err := asr.NewConfig(*modelDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load model config: %v\n", err)
		os.Exit(1)
	}

	recognizer, err := asr.NewRecognizer(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create recognizer: %v\n", err)
		os.Exit(1)
	}
	defer recognizer.Close()

	workDir, err := os.MkdirTemp("", "transcribe-chunks-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create work directory: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(workDir)

	manager := transcription.NewManager(
		transcription.DefaultConfig(),
		chunking.NewChunker(chunking.DefaultConfig()),
		func(string) (transcription.SegmentTranscriber, error) { return recognizer, nil },
		workDir,
	)
	defer manager.Shutdown()

	startTime := time.Now()
	done := make(chan transcription.Snapshot, 1)
	jobID, err := manager.StartJob(transcription.StartOptions{
		AudioPath:     *inputFile,
		ChunkDuration: *chunkDur,
		Overlap:       *overlap,
		MaxConcurrent: *workers,
		OnFinish:      func(snap transcription.Snapshot) { done <- snap },
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to start transcription: %v\n", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var final transcription.Snapshot
poll:
	for {
		select {
		case final = <-done:
			break poll
		case <-ticker.C:
			if !*verbose {
				continue
			}
			snap, err := manager.Progress(jobID)
			if err != nil {
				continue
			}
			fmt.Fprintf(os.Stderr, "Progress: %d%% (%d/%d segments, %d active)\n",
				snap.Progress, snap.Completed+snap.Failed, snap.Total, snap.ActiveCount)
		}
	}

	if final.Status == transcription.StatusFailed {
		fmt.Fprintf(os.Stderr, "Error: Transcription failed: %s\n", final.Error)
		os.Exit(1)
	}
	if len(final.FailedIndices) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d segment(s) failed permanently\n", len(final.FailedIndices))
	}

	result := &asr.Result{
		Text:     final.TranscriptSoFar,
		Duration: time.Since(startTime).Seconds(),
	}

	var output string
	switch *format {
	case "json":
		output, err = result.FormatAsJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to format JSON: %v\n", err)
			os.Exit(1)
		}
	default:
		output = result.FormatAsText()
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to write output file: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Output written to: %s\n", *outputFile)
		}
	} else {
		fmt.Println(output)
	}
}
