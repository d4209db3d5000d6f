package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-assistant/internal/agent"
	"document-assistant/internal/config"
	"document-assistant/internal/embedding"
	"document-assistant/internal/helper"
	"document-assistant/internal/llmservice"
	"document-assistant/internal/models"
	"document-assistant/internal/parser"
	"document-assistant/internal/rag"
	"document-assistant/internal/server"
	"document-assistant/internal/session"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the yaml config")
	filePath := flag.String("file", "", "Path to the document file")
	action := flag.String("action", "qa", "Action: qa, overview, steps, letter, checklist, simplify, general, agent")
	query := flag.String("query", "", "Question or goal for the action")
	mode := flag.String("mode", agent.ModeSimpleFrench, "Simplify mode")
	format := flag.String("format", "markdown", "Answer format: markdown or html")
	serve := flag.String("serve", "", "Start the HTTP API on this address instead of running one action")
	jsonOut := flag.Bool("json", false, "Print the response as json")
	debug := flag.Bool("debug", false, "Debug logging")
	resetIndex := flag.Bool("reset-index", false, "Drop stored chunks before starting (pgvector backend)")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if *resetIndex {
		cfg.Database.Reset = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	generator, err := llmservice.New(cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing llm")
	}
	builder, err := rag.NewBuilder(ctx, cfg, embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing index backend")
	}
	defer builder.Close()

	assistant := agent.NewAssistant(agent.NewTools(generator), cfg.RAG.TopK)

	if *serve != "" {
		cfg.Server.Addr = *serve
		store, err := session.NewStore(cfg.Server.MaxSessions, builder.NewIndex)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating session store")
		}
		if err := server.New(cfg.Server, store, assistant).Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
		return
	}

	if err := runOnce(ctx, builder.NewIndex(), assistant, *filePath, *action, *query, *mode, *format, *jsonOut); err != nil {
		log.Fatal().Err(err).Msg("Error running action")
	}
}

func runOnce(ctx context.Context, index *rag.Index, assistant *agent.Assistant, filePath, action, query, mode, format string, jsonOut bool) error {
	defer index.Close(ctx)

	act, err := agent.ParseAction(action)
	if err != nil {
		return err
	}

	if filePath != "" {
		text, err := parser.ExtractText(filePath)
		if err != nil {
			return fmt.Errorf("extract %s: %w", filePath, err)
		}
		if err := index.Load(ctx, text); err != nil {
			if embedding.IsProviderError(err) {
				log.Warn().Err(err).Msg(models.ProcessingWarning)
			}
			return err
		}
		log.Info().Str("file", filePath).Int("chunks", index.Len()).Msg("Document processed")
	}

	resp, err := assistant.Do(ctx, index, agent.Request{Action: act, Input: query, Mode: mode})
	if err != nil {
		return err
	}
	if format == "html" {
		if resp.Answer, err = helper.MarkdownToHTML(resp.Answer); err != nil {
			return err
		}
	}

	if jsonOut {
		helper.PrettyPrint(resp)
		return nil
	}

	out := models.PromptResponse{Query: agent.HistoryQuestion(agent.Request{Action: act, Input: query, Mode: mode}), Source: resp.Context, Content: resp.Answer}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", out.Query)

	if out.Source != "" {
		log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		fmt.Printf("%s\n\n", out.Source)
	}

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", out.Content)
	return nil
}
