package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spacebio/rag/internal/models"
	"github.com/spacebio/rag/internal/types"
	"github.com/spacebio/rag/pkg/config"
	"github.com/spacebio/rag/pkg/harvester"
	"github.com/spacebio/rag/pkg/imagegen"
	"github.com/spacebio/rag/pkg/llm"
	"github.com/spacebio/rag/pkg/pipeline"
	"github.com/spacebio/rag/pkg/processor"
	"github.com/spacebio/rag/pkg/prompt"
	"github.com/spacebio/rag/pkg/retriever"
	"github.com/spacebio/rag/pkg/store"
	"github.com/spacebio/rag/server"
)

type flags struct {
	configPath string
	urls       string
	urlsFile   string
	serve      bool
	k          int
}

func main() {
	f := parseFlags()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.urls, "urls", "", "Comma-separated article URLs to ingest")
	flag.StringVar(&f.urlsFile, "urls-file", "", "File with one article URL per line")
	flag.BoolVar(&f.serve, "serve", false, "Start the HTTP server after ingestion")
	flag.IntVar(&f.k, "k", 0, "Number of chunks to retrieve per question")
	flag.Parse()

	return f
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(f flags) error {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	if f.k > 0 {
		cfg.Retriever.K = f.k
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config error: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	// Construct every collaborator once, up front, and pass it down.
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.Embedder.Model,
		BaseURL: cfg.Embedder.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	index, err := buildIndex(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize vector index: %v", err)
	}
	defer index.Close()

	composer := prompt.NewWithConfig(prompt.ComposerConfig{
		ContextBudget: cfg.Prompt.ContextBudget,
	})

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		BaseURL:     cfg.LLM.BaseURL,
	}, composer)
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	ret := retriever.NewWithConfig(retriever.RetrieverConfig{
		DefaultK:          cfg.Retriever.K,
		FetchMultiplier:   cfg.Retriever.FetchMultiplier,
		PreferredSections: cfg.Retriever.PreferredSections,
	}, embedder, index)

	fanout := imagegen.NewOrchestrator(buildImageModel(cfg))

	pipe := pipeline.New(&ret, chatEngine, fanout)

	if f.urls != "" || f.urlsFile != "" {
		urls, err := collectURLs(f)
		if err != nil {
			return err
		}
		if err := ingest(cfg, embedder, index, urls); err != nil {
			return err
		}
	}

	if f.serve {
		srv := server.New(server.Config{
			Port:     cfg.Server.Port,
			DefaultK: cfg.Retriever.K,
		}, pipe, &ret, chatEngine, index)
		return srv.ListenAndServe()
	}

	return chatLoop(pipe, cfg.Retriever.K)
}

func buildIndex(cfg *config.Config) (types.VectorIndex, error) {
	if cfg.Index.Backend == "pgvector" {
		idx, err := store.NewPGIndex(store.PGIndexConfig{
			ConnString: cfg.Database.URL,
			TableName:  cfg.Database.TableName,
			VectorDim:  cfg.Database.VectorDim,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil
	}
	return store.NewMemoryIndex(), nil
}

// buildImageModel returns the Gemini client when a key is configured,
// otherwise a stand-in that rejects visualize requests.
func buildImageModel(cfg *config.Config) types.ImageModel {
	if cfg.Images.APIKey == "" {
		color.Yellow("GEMINI_API_KEY not set; /visualize is disabled")
		return imagesDisabled{}
	}

	client, err := imagegen.NewGeminiClient(imagegen.GeminiConfig{
		APIKey:  cfg.Images.APIKey,
		Model:   cfg.Images.Model,
		BaseURL: cfg.Images.BaseURL,
	})
	if err != nil {
		color.Yellow("image client unavailable: %v", err)
		return imagesDisabled{}
	}
	return client
}

type imagesDisabled struct{}

func (imagesDisabled) GenerateImage(ctx context.Context, _ string) ([]byte, error) {
	return nil, errors.New("image generation is not configured")
}

func collectURLs(f flags) ([]string, error) {
	var urls []string

	for _, u := range strings.Split(f.urls, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}

	if f.urlsFile != "" {
		file, err := os.Open(f.urlsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open urls file: %v", err)
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
				urls = append(urls, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read urls file: %v", err)
		}
	}

	if len(urls) == 0 {
		return nil, fmt.Errorf("no URLs to ingest")
	}
	return urls, nil
}

// ingest harvests the article URLs, chunks each section, embeds the
// chunks, and indexes them one document at a time so a reader never
// sees a half-ingested document.
func ingest(cfg *config.Config, embedder types.Embedder, index types.VectorIndex, urls []string) error {
	ctx := context.Background()

	color.Blue("\nStarting ingestion for %d URLs\n", len(urls))

	harvestBar := getProgressBar(len(urls), "Harvesting articles...")
	h := harvester.NewWithConfig(harvester.HarvesterConfig{
		RateLimit:       cfg.Harvester.RateLimit,
		MinSectionChars: cfg.Harvester.MinSectionChars,
		OnProgress: func(url string) {
			harvestBar.Add(1)
		},
	})

	docs, err := h.Harvest(ctx, urls)
	harvestBar.Finish()
	if err != nil {
		return fmt.Errorf("failed to harvest articles: %v", err)
	}
	color.Green("\n✓ Harvested %d document sections\n", len(docs))

	proc, err := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})
	if err != nil {
		return err
	}

	indexBar := getProgressBar(len(docs), "Embedding and indexing...")
	total := 0
	for _, doc := range docs {
		chunks, err := proc.Process([]models.Document{doc})
		if err != nil {
			return fmt.Errorf("failed to process document %s: %v", doc.URL, err)
		}
		if len(chunks) == 0 {
			indexBar.Add(1)
			continue
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}

		embeddings, err := embedder.CreateEmbedding(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed document %s: %v", doc.URL, err)
		}

		if err := index.Add(ctx, chunks, embeddings); err != nil {
			return fmt.Errorf("failed to index document %s: %v", doc.URL, err)
		}

		total += len(chunks)
		indexBar.Add(1)
	}
	color.Green("\n✓ Indexed %d chunks\n", total)

	return nil
}

func chatLoop(pipe *pipeline.Pipeline, k int) error {
	color.Cyan("\nAsk about the space biology corpus (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if strings.ToLower(question) == "exit" {
			break
		}
		if question == "" {
			continue
		}

		spinner := getSpinner("Thinking...")
		answer, err := pipe.Ask(context.Background(), question, k)
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		assistantPrompt("\nAssistant: %s\n", answer.Text)
		if len(answer.Sources) > 0 {
			fmt.Println("\nSources:")
			for _, src := range answer.Sources {
				fmt.Printf("  [%s] %s (%s) %s\n", src.Label, src.Title, src.Section, src.URL)
			}
		}
	}

	return nil
}
