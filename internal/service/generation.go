package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phorium/phorium/internal/ai"
	"github.com/phorium/phorium/internal/metrics"
	"github.com/phorium/phorium/internal/model"
)

// Generation errors.
var (
	ErrInvalidPrompt       = errors.New("prompt is required")
	ErrPromptTooLong       = errors.New("prompt too long")
	ErrInvalidImageSize    = errors.New("unsupported image size")
	ErrProviderUnavailable = errors.New("generation provider not configured")
	ErrProviderFailed      = errors.New("generation provider failed")
)

const (
	maxProductLength = 300
	maxPromptLength  = 1000
)

// TextGenerator produces marketing copy.
type TextGenerator interface {
	Generate(ctx context.Context, req ai.TextRequest) (*ai.TextResult, error)
}

// ImageGenerator produces images.
type ImageGenerator interface {
	Generate(ctx context.Context, req ai.ImageRequest) (*ai.ImageResult, error)
}

// GenerationStore persists generation records.
type GenerationStore interface {
	CreateGeneration(ctx context.Context, g *model.Generation) error
	ListGenerations(ctx context.Context, userID string, limit int) ([]*model.Generation, error)
}

// GenerationCosts is the credit price of each generation kind.
type GenerationCosts struct {
	Text  int64
	Image int64
}

// GenerationOutcome is a finished generation and the balance left after paying for it.
type GenerationOutcome struct {
	Generation *model.Generation
	Image      *ai.ImageResult
	Balance    int64
}

// GenerationService charges credits for provider calls.
type GenerationService struct {
	ledger  *LedgerService
	store   GenerationStore
	text    TextGenerator
	image   ImageGenerator
	costs   GenerationCosts
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewGenerationService creates a new GenerationService.
// text or image may be nil when the provider is not configured.
func NewGenerationService(
	ledger *LedgerService,
	store GenerationStore,
	text TextGenerator,
	image ImageGenerator,
	costs GenerationCosts,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *GenerationService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationService{
		ledger:  ledger,
		store:   store,
		text:    text,
		image:   image,
		costs:   costs,
		metrics: recorder,
		logger:  logger,
	}
}

// TextInput defines input for a text generation.
type TextInput struct {
	UserID   string
	Product  string
	Tone     string
	Keywords []string
}

// ImageInput defines input for an image generation.
type ImageInput struct {
	UserID string
	Prompt string
	Size   string
}

// GenerateText debits the text cost, then asks the provider for copy.
// Provider failures refund the debit.
func (s *GenerationService) GenerateText(ctx context.Context, in TextInput) (*GenerationOutcome, error) {
	product := strings.TrimSpace(in.Product)
	if product == "" {
		return nil, ErrInvalidPrompt
	}
	if len(product) > maxProductLength {
		return nil, ErrPromptTooLong
	}
	if s.text == nil {
		return nil, ErrProviderUnavailable
	}

	req := ai.TextRequest{Product: product, Tone: in.Tone, Keywords: in.Keywords}
	prompt := ai.BuildTextPrompt(req)

	return s.run(ctx, in.UserID, model.GenerationText, prompt, s.costs.Text,
		func(ctx context.Context, g *model.Generation) error {
			res, err := s.text.Generate(ctx, req)
			if err != nil {
				return err
			}
			g.Output = res.Text
			g.TokensUsed = res.TokensUsed
			return nil
		})
}

// GenerateImage debits the image cost, then asks the provider for an image.
// Provider failures refund the debit.
func (s *GenerationService) GenerateImage(ctx context.Context, in ImageInput) (*GenerationOutcome, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, ErrInvalidPrompt
	}
	if len(prompt) > maxPromptLength {
		return nil, ErrPromptTooLong
	}
	size, err := ai.NormalizeSize(in.Size)
	if err != nil {
		return nil, ErrInvalidImageSize
	}
	if s.image == nil {
		return nil, ErrProviderUnavailable
	}

	var image *ai.ImageResult
	outcome, err := s.run(ctx, in.UserID, model.GenerationImage, prompt, s.costs.Image,
		func(ctx context.Context, g *model.Generation) error {
			res, err := s.image.Generate(ctx, ai.ImageRequest{Prompt: prompt, Size: size})
			if err != nil {
				return err
			}
			image = res
			g.Output = imageOutput(res)
			return nil
		})
	if outcome != nil {
		outcome.Image = image
	}
	return outcome, err
}

// inlineImageMarker stands in for base64 image data, which history does not keep.
const inlineImageMarker = "inline:b64_json"

// imageOutput is what generation history keeps for an image: its URL, or the
// inline marker followed by the revised prompt when the provider sent no URL.
func imageOutput(res *ai.ImageResult) string {
	if res.URL != "" {
		return res.URL
	}
	if res.RevisedPrompt != "" {
		return inlineImageMarker + " " + res.RevisedPrompt
	}
	return inlineImageMarker
}

// History returns the most recent generations of userID.
func (s *GenerationService) History(ctx context.Context, userID string, limit int) ([]*model.Generation, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}

	generations, err := s.store.ListGenerations(ctx, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return generations, nil
}

func (s *GenerationService) run(
	ctx context.Context,
	userID string,
	kind model.GenerationKind,
	prompt string,
	cost int64,
	call func(context.Context, *model.Generation) error,
) (*GenerationOutcome, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}

	g := &model.Generation{
		ID:        generateULID(),
		UserID:    userID,
		Kind:      kind,
		Prompt:    prompt,
		Cost:      cost,
		CreatedAt: time.Now().UTC(),
	}

	debit, err := s.ledger.Debit(ctx, userID, cost, fmt.Sprintf("generate:%s:%s", kind, g.ID))
	if err != nil {
		s.metrics.IncGeneration(string(kind), metrics.OutcomeRejected)
		return &GenerationOutcome{Balance: debit.Balance}, err
	}

	start := time.Now()
	callErr := call(ctx, g)
	s.metrics.ObserveProviderDuration(string(kind), time.Since(start))

	if callErr != nil {
		g.Status = model.GenerationFailed
		s.record(ctx, g)

		balance := debit.Balance
		if cost > 0 {
			refund, err := s.ledger.Refund(context.WithoutCancel(ctx), g.UserID, cost, "refund:"+g.ID)
			if err != nil {
				s.logger.Error("generation refund failed",
					"generation_id", g.ID,
					"user_id", g.UserID,
					"cost", cost,
					"error", err,
				)
			} else {
				balance = refund.Balance
			}
		}

		s.metrics.IncGeneration(string(kind), metrics.OutcomeError)
		s.logger.Warn("generation provider failed",
			"generation_id", g.ID,
			"kind", kind,
			"error", callErr,
		)
		return &GenerationOutcome{Generation: g, Balance: balance}, fmt.Errorf("%w: %v", ErrProviderFailed, callErr)
	}

	g.Status = model.GenerationSucceeded
	s.record(ctx, g)
	s.metrics.IncGeneration(string(kind), metrics.OutcomeSuccess)

	return &GenerationOutcome{Generation: g, Balance: debit.Balance}, nil
}

// record persists g; a lost history row never fails a paid generation.
func (s *GenerationService) record(ctx context.Context, g *model.Generation) {
	if err := s.store.CreateGeneration(ctx, g); err != nil {
		s.logger.Error("failed to record generation", "generation_id", g.ID, "error", err)
	}
}
