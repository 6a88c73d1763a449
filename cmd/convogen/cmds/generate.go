package cmds

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/go-go-golems/convogen/pkg/batch"
	"github.com/go-go-golems/convogen/pkg/conversation/builder"
	"github.com/go-go-golems/convogen/pkg/engine"
	"github.com/go-go-golems/convogen/pkg/events"
	"github.com/go-go-golems/convogen/pkg/metrics"
	"github.com/go-go-golems/convogen/pkg/scenario"
	"github.com/go-go-golems/convogen/pkg/sink"
	"github.com/go-go-golems/convogen/pkg/toolsim"
	"github.com/go-go-golems/convogen/pkg/turngen"
)

type generateSettings struct {
	Topic           string
	Persona         string
	Conversations   int
	Turns           int
	Concurrency     int
	Seed            int64
	Output          string
	Model           string
	BaseURL         string
	Catalog         string
	WithScenarios   bool
	ToolProbability float64
	MaxToolCalls    int
	InterTurnGap    time.Duration
	RateLimit       float64
	MaxAttempts     int
}

func NewGenerateCommand() *cobra.Command {
	settings := &generateSettings{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a batch of synthetic conversation transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runGenerate(ctx, settings)
		},
	}

	cmd.Flags().StringVar(&settings.Topic, "topic", "", "Conversation topic")
	cmd.Flags().StringVar(&settings.Persona, "persona", "a curious user", "User persona")
	cmd.Flags().IntVar(&settings.Conversations, "conversations", 1, "Number of conversations to generate")
	cmd.Flags().IntVar(&settings.Turns, "turns", 6, "Number of turns per conversation")
	cmd.Flags().IntVar(&settings.Concurrency, "concurrency", 2, "Number of conversations built in parallel")
	cmd.Flags().Int64Var(&settings.Seed, "seed", 0, "Base random seed (0: derived from the current time)")
	cmd.Flags().StringVarP(&settings.Output, "output", "o", "conversations", "Output directory for conversation JSON files")
	cmd.Flags().StringVar(&settings.Model, "model", "gpt-4o-mini", "Completion model")
	cmd.Flags().StringVar(&settings.BaseURL, "base-url", "", "OpenAI-compatible API base URL")
	cmd.Flags().StringVar(&settings.Catalog, "catalog", "", "Path to a tool catalog YAML file (default: built-in catalog)")
	cmd.Flags().BoolVar(&settings.WithScenarios, "with-scenarios", false, "Derive a distinct scenario per conversation before generating")
	cmd.Flags().Float64Var(&settings.ToolProbability, "tool-probability", 0.6, "Probability that an assistant turn calls tools")
	cmd.Flags().IntVar(&settings.MaxToolCalls, "max-tool-calls", 2, "Maximum tool calls per assistant turn")
	cmd.Flags().DurationVar(&settings.InterTurnGap, "inter-turn-gap", 1500*time.Millisecond, "Gap between a turn ending and the next one starting")
	cmd.Flags().Float64Var(&settings.RateLimit, "rate-limit", 0, "Maximum completion requests per second across the batch (0: unlimited)")
	cmd.Flags().IntVar(&settings.MaxAttempts, "max-attempts", 3, "Completion attempts per turn before giving up")

	_ = cmd.MarkFlagRequired("topic")

	return cmd
}

func runGenerate(ctx context.Context, settings *generateSettings) error {
	seed := settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	eng, err := buildEngine(settings)
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(settings.Catalog)
	if err != nil {
		return err
	}

	turnCfg := turngen.DefaultConfig().
		WithToolProbability(settings.ToolProbability).
		WithMaxToolCalls(settings.MaxToolCalls).
		WithInterTurnGap(settings.InterTurnGap)
	if err := turnCfg.Validate(); err != nil {
		return err
	}

	bus := events.NewBus(log.Logger)
	defer func() {
		if err := bus.Close(); err != nil {
			log.Warn().Err(err).Msg("could not close event bus")
		}
	}()
	go logEvents(ctx, bus)

	factory := func(convSeed int64, correlationID string) (batch.ConversationBuilder, error) {
		rng := rand.New(rand.NewSource(convSeed))
		synth, err := metrics.NewSynthesizer(metrics.DefaultConfig(), rng)
		if err != nil {
			return nil, err
		}
		sim, err := toolsim.NewSimulator(catalog, nil, synth, rng)
		if err != nil {
			return nil, err
		}
		gen, err := turngen.NewGenerator(eng, synth, sim, rng, turnCfg)
		if err != nil {
			return nil, err
		}
		return builder.New(gen, eng,
			builder.WithPublisher(bus),
			builder.WithCorrelationID(correlationID),
		)
	}

	fileSink, err := sink.NewFileSink(settings.Output)
	if err != nil {
		return err
	}

	cfg := batch.Config{
		Concurrency: settings.Concurrency,
		Seed:        seed,
	}
	if settings.WithScenarios {
		scenarioGen, err := scenario.NewGenerator(eng)
		if err != nil {
			return err
		}
		log.Info().Str("topic", settings.Topic).Msg("deriving scenarios")
		cfg.Scenarios, err = scenarioGen.Generate(ctx, settings.Topic, settings.Conversations)
		if err != nil {
			return errors.Wrap(err, "could not derive scenarios")
		}
	}

	coordinator, err := batch.NewCoordinator(factory, fileSink, cfg, batch.WithPublisher(bus))
	if err != nil {
		return err
	}

	outcomes, err := coordinator.Run(ctx, batch.Request{
		Topic:         settings.Topic,
		Persona:       settings.Persona,
		Conversations: settings.Conversations,
		Turns:         settings.Turns,
	})
	if err != nil {
		return err
	}

	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.Succeeded() {
			succeeded++
			fmt.Printf("%s\t%s\n", outcome.ConversationID, fileSink.Path(outcome.ConversationID))
			continue
		}
		log.Error().
			Int("index", outcome.Index).
			Err(outcome.Err).
			Msg("conversation failed")
	}

	log.Info().
		Int("succeeded", succeeded).
		Int("failed", len(outcomes)-succeeded).
		Int64("seed", seed).
		Str("output", settings.Output).
		Msg("batch finished")

	if succeeded == 0 {
		return errors.New("no conversation succeeded")
	}
	return nil
}

func buildEngine(settings *generateSettings) (engine.Engine, error) {
	apiKey := viper.GetString("openai-api-key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	base, err := engine.NewOpenAIEngine(engine.OpenAISettings{
		APIKey:      apiKey,
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Temperature: 0.8,
	})
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if settings.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(settings.RateLimit), 1)
	}
	retryCfg := engine.DefaultRetryConfig().WithMaxAttempts(settings.MaxAttempts)
	return engine.NewRetryingEngine(base, retryCfg, limiter)
}

func loadCatalog(path string) (*toolsim.Catalog, error) {
	if path == "" {
		return toolsim.DefaultCatalog()
	}
	return toolsim.LoadCatalog(path)
}

func logEvents(ctx context.Context, bus *events.Bus) {
	messages, err := bus.Subscribe(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not subscribe to generation events")
		return
	}
	for msg := range messages {
		ev, err := events.NewEventFromJSON(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("could not decode generation event")
			msg.Ack()
			continue
		}
		log.Info().Object("event", ev).Msg("generation progress")
		msg.Ack()
	}
}
